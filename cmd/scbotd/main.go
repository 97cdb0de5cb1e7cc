/*
Copyright 2016 The Kubernetes Authors.

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

// Command scbotd runs the webhook and external-QA HTTP server, wiring
// store -> lock -> host client -> prsync -> executor -> updater -> router
// -> server, the way cmd/hook/main.go wires Prow's hook binary.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/crypto"
	"github.com/clarketm/scbot-engine/executor"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/lock"
	lockmemory "github.com/clarketm/scbot-engine/lock/memory"
	"github.com/clarketm/scbot-engine/lock/redislock"
	"github.com/clarketm/scbot-engine/logging"
	"github.com/clarketm/scbot-engine/prsync"
	"github.com/clarketm/scbot-engine/router"
	"github.com/clarketm/scbot-engine/server"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
	"github.com/clarketm/scbot-engine/store/postgres"
	"github.com/clarketm/scbot-engine/updater"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}
	log := logging.Init("scbotd", cfg.Debug)

	s, err := buildStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("building store")
	}

	l, err := buildLock(cfg)
	if err != nil {
		log.WithError(err).Fatal("building lock")
	}

	host, err := buildHostClient(cfg)
	if err != nil {
		log.WithError(err).Fatal("building host client")
	}

	syncer := prsync.New(s, cfg)
	u := updater.New(log.WithField("component", "updater"), s, host, l)
	exec := executor.New(log.WithField("component", "executor"), u)
	r := router.New(log.WithField("component", "router"), cfg, s, host, syncer, exec, u)
	srv := server.New(log, cfg, s, l, host, r, exec)

	// Ignore SIGTERM so in-flight webhook handling finishes before the
	// pod's graceful termination deadline forces a SIGKILL.
	signal.Ignore(syscall.SIGTERM)

	log.WithField("address", cfg.ServerBindAddress).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.ServerBindAddress, srv.Engine()))
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DatabaseDriverPostgres:
		return postgres.Open(cfg.Database.URL)
	default:
		return memory.New(), nil
	}
}

func buildLock(cfg *config.Config) (lock.Lock, error) {
	switch cfg.Lock.Driver {
	case config.LockDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Lock.Address})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Lock.Address, err)
		}
		return redislock.New(client, lock.DefaultTTL), nil
	default:
		return lockmemory.New(lock.DefaultTTL), nil
	}
}

func buildHostClient(cfg *config.Config) (github.HostClient, error) {
	if cfg.HostAPI.Driver != config.HostAPIDriverHost {
		return github.NewFakeClient(), nil
	}

	token, err := resolveHostToken(cfg)
	if err != nil {
		return nil, err
	}
	return github.NewClient(token, cfg.HostAPI.Endpoint), nil
}

// resolveHostToken mirrors github.ResolveToken's precedence (static token
// wins), performing the GitHub App installation-token exchange itself when
// app credentials are configured instead, since the engine does not vendor
// a full GitHub App client.
func resolveHostToken(cfg *config.Config) (string, error) {
	if cfg.HostAPI.UsesStaticToken() {
		return cfg.HostAPI.Token, nil
	}

	key, err := crypto.ParsePrivateKey(cfg.HostAPI.PrivateKeyPEM)
	if err != nil {
		return "", err
	}
	appJWT, err := github.NewAppJWT(cfg.HostAPI.AppID, key)
	if err != nil {
		return "", err
	}
	return github.ResolveToken("", appJWT, cfg.HostAPI.InstallationID, exchangeInstallationToken(cfg.HostAPI.Endpoint))
}

// exchangeInstallationToken performs the
// "POST /app/installations/{id}/access_tokens" exchange the GitHub App
// flow requires, the one piece github.ResolveToken deliberately leaves as
// an injected function rather than a hard HTTP dependency.
func exchangeInstallationToken(endpoint string) func(jwt, installationID string) (string, error) {
	return func(jwt, installationID string) (string, error) {
		url := fmt.Sprintf("%s/app/installations/%s/access_tokens", endpoint, installationID)
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(nil))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+jwt)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("exchanging installation token: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return "", fmt.Errorf("installation token exchange returned %d", resp.StatusCode)
		}

		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decoding installation token response: %w", err)
		}
		return body.Token, nil
	}
}
