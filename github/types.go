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

package github

import "time"

// RepoPermissionLevel is the permission a user holds against a repository.
type RepoPermissionLevel string

const (
	None  RepoPermissionLevel = "none"
	Read  RepoPermissionLevel = "read"
	Write RepoPermissionLevel = "write"
	Admin RepoPermissionLevel = "admin"
)

// Atleast reports whether l grants at least the permission other.
func (l RepoPermissionLevel) Atleast(other RepoPermissionLevel) bool {
	rank := map[RepoPermissionLevel]int{None: 0, Read: 1, Write: 2, Admin: 3}
	return rank[l] >= rank[other]
}

// User is the actor behind an event or comment.
type User struct {
	Login string `json:"login"`
}

// Repo identifies a repository by owner/name.
type Repo struct {
	Owner    User   `json:"owner"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Label is a named issue/PR label.
type Label struct {
	Name string `json:"name"`
}

// PullRequestBranch describes one side (base or head) of a pull request.
type PullRequestBranch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest is the upstream pull request snapshot the engine reasons
// about. Only the fields the status builder/updater/merger touch are kept.
type PullRequest struct {
	Number    int               `json:"number"`
	Title     string            `json:"title"`
	State     string            `json:"state"`
	Draft     bool              `json:"draft"`
	Merged    bool              `json:"merged"`
	Mergeable *bool             `json:"mergeable"`
	User      User              `json:"user"`
	Base      PullRequestBranch `json:"base"`
	Head      PullRequestBranch `json:"head"`
	Repo      Repo              `json:"base_repo"`
}

// IssueComment is a comment on an issue or pull request.
type IssueComment struct {
	ID     int    `json:"id"`
	Body   string `json:"body"`
	User   User   `json:"user"`
	HTMLURL string `json:"html_url"`
}

// ReviewState is the upstream review state, before engine-side dedupe.
type ReviewState string

const (
	ReviewStateApproved         ReviewState = "APPROVED"
	ReviewStateChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewStateCommented        ReviewState = "COMMENTED"
	ReviewStateDismissed        ReviewState = "DISMISSED"
	ReviewStatePending          ReviewState = "PENDING"
)

// Review is a single upstream review submission.
type Review struct {
	User        User        `json:"user"`
	State       ReviewState `json:"state"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// StatusState is the state half of a commit status.
type StatusState string

const (
	StatusStateSuccess StatusState = "success"
	StatusStatePending StatusState = "pending"
	StatusStateFailure StatusState = "failure"
	StatusStateError   StatusState = "error"
)

// Status is one commit-status entry, pushed or read back from the host.
type Status struct {
	Context     string      `json:"context"`
	State       StatusState `json:"state"`
	Description string      `json:"description"`
	TargetURL   string      `json:"target_url,omitempty"`
}

// CombinedStatus is the host's folded view of every status context on a ref.
type CombinedStatus struct {
	State    StatusState `json:"state"`
	Statuses []Status    `json:"statuses"`
}

// MergeDetails is passed to Merge.
type MergeDetails struct {
	CommitTitle string `json:"commit_title"`
	SHA         string `json:"sha,omitempty"`
	MergeMethod string `json:"merge_method"`
}

// ReactionKind is a comment/issue reaction emoji kind.
type ReactionKind string

const (
	ReactionThumbsUp   ReactionKind = "+1"
	ReactionThumbsDown ReactionKind = "-1"
	ReactionConfused   ReactionKind = "confused"
	ReactionLaugh      ReactionKind = "laugh"
)

// CheckSuite is the subset of a check_suite webhook payload the router
// needs to decide whether to queue a status refresh.
type CheckSuite struct {
	HeadSHA      string `json:"head_sha"`
	App          struct {
		Slug string `json:"slug"`
	} `json:"app"`
	PullRequests []struct {
		Number int `json:"number"`
	} `json:"pull_requests"`
}
