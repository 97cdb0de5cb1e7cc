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

package store

// Store persists and queries every durable entity in spec.md §3. Both
// backends (memory, postgres) implement the exact same contract so the
// rest of the engine never branches on which one is in use.
type Store interface {
	// Repository

	GetOrCreateRepository(owner, name string, defaults RepositoryDefaults) (*Repository, error)
	GetRepositoryByName(owner, name string) (*Repository, error)
	GetRepository(id uint64) (*Repository, error)
	UpdateRepository(r *Repository) error
	ListRepositories() ([]*Repository, error)
	DeleteRepository(id uint64) error

	// PullRequest

	GetOrCreatePullRequest(repositoryID uint64, number int, defaults PullRequestDefaults) (*PullRequest, error)
	GetPullRequest(repositoryID uint64, number int) (*PullRequest, error)
	GetPullRequestByID(id uint64) (*PullRequest, error)
	UpdatePullRequest(pr *PullRequest) error
	ListPullRequests(repositoryID uint64) ([]*PullRequest, error)

	// MergeRule

	GetMergeRule(repositoryID uint64, base, head string) (*MergeRule, error)
	SetMergeRule(rule MergeRule) (*MergeRule, error)
	ListMergeRules(repositoryID uint64) ([]*MergeRule, error)
	DeleteMergeRule(repositoryID uint64, base, head string) error

	// PullRequestRule

	CreatePullRequestRule(rule PullRequestRule) (*PullRequestRule, error)
	ListPullRequestRules(repositoryID uint64) ([]*PullRequestRule, error)
	DeletePullRequestRule(repositoryID uint64, name string) error

	// RequiredReviewer

	AddRequiredReviewer(pullRequestID uint64, username string) error
	RemoveRequiredReviewer(pullRequestID uint64, username string) error
	ListRequiredReviewers(pullRequestID uint64) ([]string, error)

	// Account

	GetAccount(username string) (*Account, error)
	UpsertAccount(a Account) (*Account, error)
	ListAccounts() ([]*Account, error)
	DeleteAccount(username string) error

	// ExternalAccount

	GetExternalAccount(username string) (*ExternalAccount, error)
	UpsertExternalAccount(a ExternalAccount) (*ExternalAccount, error)
	ListExternalAccounts() ([]*ExternalAccount, error)
	DeleteExternalAccount(username string) error

	// ExternalAccountRight

	AddExternalAccountRight(username string, repositoryID uint64) error
	RemoveExternalAccountRight(username string, repositoryID uint64) error
	HasExternalAccountRight(username string, repositoryID uint64) (bool, error)
	ListExternalAccountRights(username string) ([]uint64, error)

	// Export/import, per spec.md §6. Import is idempotent: existing rows
	// are matched by their id (accounts and external accounts by username)
	// and updated, missing ones created. Rows are not matched by natural key
	// such as owner/name, so a row whose natural key already exists under a
	// different id is not merged with it.
	Export() (*ExportDocument, error)
	Import(doc ExportDocument) error

	// Ping reports whether the backend is reachable, for GET /health.
	Ping() error
}

// RepositoryDefaults seeds a newly created Repository's config-derived
// fields; applied only when GetOrCreateRepository actually creates a row.
type RepositoryDefaults struct {
	DefaultStrategy         string
	DefaultNeededReviewers  uint64
	DefaultPRTitleRegex     string
	DefaultChecksEnabled    bool
	DefaultQAEnabled        bool
	DefaultAutomergeEnabled bool
	ManualInteraction       bool
}

// PullRequestDefaults seeds a newly created PullRequest; applied only when
// GetOrCreatePullRequest actually creates a row. QAStatus is stored as
// given; deriving Waiting/Skipped from the repository's DefaultQAEnabled is
// the caller's job (see prsync), and an empty QAStatus is stored empty.
type PullRequestDefaults struct {
	QAStatus QAStatus
	WIP      bool
}
