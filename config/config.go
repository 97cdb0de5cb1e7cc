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

// Package config knows how to read the engine's configuration from the
// process environment. Unlike Prow's config.Load (which re-reads a YAML
// file on a timer), the result here is a single immutable snapshot for the
// lifetime of the process.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// MergeStrategy is one of the three upstream merge methods.
type MergeStrategy string

const (
	MergeStrategyMerge  MergeStrategy = "merge"
	MergeStrategySquash MergeStrategy = "squash"
	MergeStrategyRebase MergeStrategy = "rebase"
)

// ParseMergeStrategy validates a user- or config-supplied strategy name.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(s)) {
	case MergeStrategyMerge:
		return MergeStrategyMerge, nil
	case MergeStrategySquash:
		return MergeStrategySquash, nil
	case MergeStrategyRebase:
		return MergeStrategyRebase, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

// DatabaseDriver selects the store backend.
type DatabaseDriver string

const (
	DatabaseDriverMemory   DatabaseDriver = "memory"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

// LockDriver selects the named-lock backend.
type LockDriver string

const (
	LockDriverNull  LockDriver = "null"
	LockDriverRedis LockDriver = "redis"
)

// HostAPIDriver selects the host-client backend.
type HostAPIDriver string

const (
	HostAPIDriverNull HostAPIDriver = "null"
	HostAPIDriverHost HostAPIDriver = "host"
)

// DatabaseConfig describes how to reach the store.
type DatabaseConfig struct {
	Driver         DatabaseDriver `env:"DATABASE_DRIVER" env-default:"memory"`
	URL            string         `env:"DATABASE_URL"`
	PoolSize       int            `env:"DATABASE_POOL_SIZE" env-default:"10"`
	ConnectTimeout int            `env:"DATABASE_CONNECT_TIMEOUT_SECONDS" env-default:"5"`
}

// LockConfig describes how to reach the named-lock backend.
type LockConfig struct {
	Driver  LockDriver `env:"LOCK_DRIVER" env-default:"null"`
	Address string     `env:"LOCK_ADDRESS"`
}

// HostAPIConfig describes how the engine authenticates to the hosting
// platform. A non-empty Token always takes precedence over the app
// credentials, per spec.md §6.
type HostAPIConfig struct {
	Driver         HostAPIDriver `env:"HOST_API_DRIVER" env-default:"null"`
	Endpoint       string        `env:"HOST_API_ENDPOINT" env-default:"https://api.github.com"`
	Token          string        `env:"HOST_API_TOKEN"`
	AppID          string        `env:"HOST_API_APP_ID"`
	InstallationID string        `env:"HOST_API_INSTALLATION_ID"`
	PrivateKeyPEM  string        `env:"HOST_API_PRIVATE_KEY_PEM"`
}

// UsesStaticToken reports whether the static-token credential should be
// used instead of the app-id/installation-id/private-key trio.
func (h HostAPIConfig) UsesStaticToken() bool {
	return h.Token != ""
}

// Config is the complete, immutable configuration snapshot for one process.
type Config struct {
	BotHandle string `env:"BOT_HANDLE" env-default:"@scbot"`

	Database DatabaseConfig
	Lock     LockConfig
	HostAPI  HostAPIConfig

	WebhookSecret             string `env:"WEBHOOK_SECRET"`
	WebhookSignatureVerify    bool   `env:"WEBHOOK_SIGNATURE_VERIFICATION_ENABLED" env-default:"true"`
	DefaultMergeStrategy      string `env:"DEFAULT_MERGE_STRATEGY" env-default:"merge"`
	DefaultNeededReviewers    uint64 `env:"DEFAULT_NEEDED_REVIEWERS" env-default:"2"`
	DefaultPRTitleRegex       string `env:"DEFAULT_PR_TITLE_REGEX"`
	GifSearchKey              string `env:"GIF_SEARCH_KEY"`
	ServerBindAddress         string `env:"SERVER_BIND_ADDRESS" env-default:":8080"`
	ServerWorkerCount         int    `env:"SERVER_WORKER_COUNT" env-default:"4"`
	WelcomeCommentEnabled     bool   `env:"WELCOME_COMMENT_ENABLED" env-default:"true"`
	ExpectedCIApplicationSlug string `env:"EXPECTED_CI_APPLICATION_SLUG" env-default:"github-actions"`
	Debug                     bool   `env:"DEBUG" env-default:"false"`
}

// DefaultMergeStrategyParsed parses DefaultMergeStrategy, falling back to
// MergeStrategyMerge if it is empty or invalid.
func (c Config) DefaultMergeStrategyParsed() MergeStrategy {
	s, err := ParseMergeStrategy(c.DefaultMergeStrategy)
	if err != nil {
		return MergeStrategyMerge
	}
	return s
}

// Load reads the configuration from the process environment, applying the
// defaults declared above via struct tags.
func Load() (*Config, error) {
	c := &Config{}
	if err := cleanenv.ReadEnv(c); err != nil {
		return nil, fmt.Errorf("reading configuration from environment: %w", err)
	}
	return c, nil
}

// Agent hands out a read-only snapshot of Config to every consumer in the
// process. It is never reloaded, but is guarded the same way Prow's
// config.Agent guards its (reloadable) snapshot, so callers never need to
// change if that ever stops being true.
type Agent struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewAgent wraps an already-loaded Config.
func NewAgent(cfg *Config) *Agent {
	return &Agent{cfg: cfg}
}

// Config returns the current configuration snapshot.
func (a *Agent) Config() *Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}
