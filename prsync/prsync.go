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

// Package prsync gets-or-creates the local Repository and PullRequest rows
// backing an (owner, name, number) triple, the way plugins/trigger/pr.go
// turns a raw pull_request event into tracked state before any plugin logic
// runs. A newly seen repository is seeded from Config; a manual-interaction
// repository stays inert to every trigger except the few that are allowed
// to flip it back on.
package prsync

import (
	"fmt"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/store"
)

// Trigger identifies the kind of caller asking for a sync, so ManualInteraction
// repositories can tell an inert webhook retry apart from the handful of
// paths allowed to bypass the flag.
type Trigger string

const (
	TriggerWebhook         Trigger = "webhook"
	TriggerAdminEnable     Trigger = "admin_enable"
	TriggerCLI             Trigger = "cli"
	TriggerExternalAccount Trigger = "external_account"
)

// bypassesManualInteraction reports whether t may sync a repository that
// has ManualInteraction set, per spec.md §4.4.
func (t Trigger) bypassesManualInteraction() bool {
	switch t {
	case TriggerAdminEnable, TriggerCLI, TriggerExternalAccount:
		return true
	default:
		return false
	}
}

// ErrManualInteraction is returned when a webhook-side trigger hits a
// repository that is still waiting on an admin-enable command.
var ErrManualInteraction = fmt.Errorf("repository requires admin-enable before syncing")

// Syncer gets-or-creates repository and pull request rows, seeding new
// repositories from cfg's defaults.
type Syncer struct {
	store store.Store
	cfg   *config.Config
}

// New builds a Syncer backed by s, seeding newly created repositories from cfg.
func New(s store.Store, cfg *config.Config) *Syncer {
	return &Syncer{store: s, cfg: cfg}
}

// Sync ensures a Repository row exists for (owner, name) and a PullRequest
// row exists for (that repository, number), applying the configured
// defaults on first creation of either. If the repository already exists
// with ManualInteraction set and trigger is not one of the bypassing kinds,
// Sync returns ErrManualInteraction without creating the pull request row.
func (s *Syncer) Sync(owner, name string, number int, trigger Trigger) (*store.Repository, *store.PullRequest, error) {
	repo, err := s.store.GetOrCreateRepository(owner, name, store.RepositoryDefaults{
		DefaultStrategy:         s.cfg.DefaultMergeStrategy,
		DefaultNeededReviewers:  s.cfg.DefaultNeededReviewers,
		DefaultPRTitleRegex:     s.cfg.DefaultPRTitleRegex,
		DefaultChecksEnabled:    true,
		DefaultQAEnabled:        true,
		DefaultAutomergeEnabled: false,
		ManualInteraction:       false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("getting or creating repository %s/%s: %w", owner, name, err)
	}

	if repo.ManualInteraction && !trigger.bypassesManualInteraction() {
		return repo, nil, ErrManualInteraction
	}

	qaStatus := store.QAStatusWaiting
	if !repo.DefaultQAEnabled {
		qaStatus = store.QAStatusSkipped
	}
	pr, err := s.store.GetOrCreatePullRequest(repo.ID, number, store.PullRequestDefaults{
		QAStatus: qaStatus,
	})
	if err != nil {
		return repo, nil, fmt.Errorf("getting or creating pull request %s/%s#%d: %w", owner, name, number, err)
	}
	return repo, pr, nil
}
