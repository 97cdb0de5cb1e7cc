/*
Copyright 2017 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command scbot is the operator CLI: it opens the same store a running
// scbotd serves from and runs one CRUD/export/import command against it.
package main

import (
	"fmt"
	"os"

	"github.com/clarketm/scbot-engine/cli"
	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
	"github.com/clarketm/scbot-engine/store/postgres"
)

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DatabaseDriverPostgres:
		return postgres.Open(cfg.Database.URL)
	default:
		return memory.New(), nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading configuration:", err)
		os.Exit(1)
	}

	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "building store:", err)
		os.Exit(1)
	}

	if err := cli.NewRootCommand(s).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
