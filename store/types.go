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

// Package store declares every durable entity in spec.md §3 and the Store
// interface that persists them, with two interchangeable backends: memory
// (store/memory, for tests) and postgres (store/postgres, for production).
package store

import "github.com/clarketm/scbot-engine/config"

// QAStatus is the four-valued QA outcome on a pull request.
type QAStatus string

const (
	QAStatusWaiting QAStatus = "waiting"
	QAStatusPass    QAStatus = "pass"
	QAStatusFail    QAStatus = "fail"
	QAStatusSkipped QAStatus = "skipped"
)

// Repository is the owner/name-identified configuration root. See spec.md §3.
type Repository struct {
	ID                      uint64
	Owner                   string
	Name                    string
	DefaultStrategy         config.MergeStrategy
	DefaultNeededReviewers  uint64
	DefaultPRTitleRegex     string
	DefaultChecksEnabled    bool
	DefaultQAEnabled        bool
	DefaultAutomergeEnabled bool
	ManualInteraction       bool
}

// FullName is the "owner/name" form used in search queries and logging.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is a tracked pull request with per-PR overrides of the
// owning repository's defaults. Overrides are pointers so "unset, use
// repository default" is distinguishable from "explicitly set to the
// zero value".
type PullRequest struct {
	ID                 uint64
	RepositoryID        uint64
	Number              int
	NeededReviewers     *uint64
	ChecksEnabled       *bool
	QAStatus            QAStatus
	AutomergeEnabled    *bool
	StrategyOverride    *config.MergeStrategy
	Locked              bool
	LockReason          string
	StatusCommentID     int
	WIP                 bool
}

// MergeRule resolves to a merge strategy for a (base, head) branch pair.
// Either branch may be the wildcard "*".
type MergeRule struct {
	ID           uint64
	RepositoryID uint64
	BaseBranch   string
	HeadBranch   string
	Strategy     config.MergeStrategy
}

// RuleConditionKind tags the variant of a RuleCondition.
type RuleConditionKind string

const (
	ConditionAuthor     RuleConditionKind = "author"
	ConditionBaseBranch RuleConditionKind = "base_branch"
	ConditionHeadBranch RuleConditionKind = "head_branch"
)

// RuleCondition is one tagged-variant condition of a PullRequestRule.
// Value holds the author name or branch name/wildcard to match.
type RuleCondition struct {
	Kind  RuleConditionKind `json:"kind"`
	Value string            `json:"value"`
}

// RuleActionKind tags the variant of a RuleAction.
type RuleActionKind string

const (
	ActionSetAutomerge       RuleActionKind = "set_automerge"
	ActionSetQAEnabled       RuleActionKind = "set_qa_enabled"
	ActionSetChecksEnabled   RuleActionKind = "set_checks_enabled"
	ActionSetNeededReviewers RuleActionKind = "set_needed_reviewers"
)

// RuleAction is one tagged-variant action of a PullRequestRule. BoolValue
// is used by the three Set*Enabled variants, NumberValue by
// SetNeededReviewers.
type RuleAction struct {
	Kind        RuleActionKind `json:"kind"`
	BoolValue   bool           `json:"bool_value,omitempty"`
	NumberValue uint64         `json:"number_value,omitempty"`
}

// PullRequestRule matches an upstream pull request via conjunctive
// conditions and, on a match, applies every action to the local record.
type PullRequestRule struct {
	ID           uint64
	RepositoryID uint64
	Name         string
	Conditions   []RuleCondition
	Actions      []RuleAction
}

// Account is a human principal. Admins can run the admin command set
// anywhere, regardless of their host-side repository permission.
type Account struct {
	Username string
	IsAdmin  bool
}

// ExternalAccount is a non-human principal authenticating against the
// external QA HTTP surface with a JWT signed by PrivateKeyPEM and verified
// against PublicKeyPEM. Keys may be empty until generated by the CLI.
type ExternalAccount struct {
	Username      string
	PublicKeyPEM  string
	PrivateKeyPEM string
}

// ExternalAccountRight grants username the right to set QA status on PRs
// of repositoryID.
type ExternalAccountRight struct {
	Username     string
	RepositoryID uint64
}

// RequiredReviewer forces username to be counted as a mandatory approver
// on pullRequestID until they approve.
type RequiredReviewer struct {
	PullRequestID uint64
	Username      string
}

// ExportDocument is the stable top-level shape of a full-store export,
// per spec.md §6.
type ExportDocument struct {
	Repositories          []Repository           `json:"repositories"`
	PullRequests          []PullRequest           `json:"pull_requests"`
	MergeRules            []MergeRule             `json:"merge_rules"`
	PullRequestRules      []PullRequestRule        `json:"pull_request_rules"`
	Accounts              []Account               `json:"accounts"`
	ExternalAccounts      []ExternalAccount        `json:"external_accounts"`
	ExternalAccountRights []ExternalAccountRight   `json:"external_account_rights"`
	RequiredReviewers     []RequiredReviewer        `json:"required_reviewers"`
}
