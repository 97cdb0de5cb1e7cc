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

package github

// PullRequestEventAction is the "action" field of a pull_request event.
type PullRequestEventAction string

const (
	PullRequestActionOpened               PullRequestEventAction = "opened"
	PullRequestActionSynchronize          PullRequestEventAction = "synchronize"
	PullRequestActionReopened              PullRequestEventAction = "reopened"
	PullRequestActionReadyForReview        PullRequestEventAction = "ready_for_review"
	PullRequestActionConvertedToDraft      PullRequestEventAction = "converted_to_draft"
	PullRequestActionClosed                PullRequestEventAction = "closed"
	PullRequestActionEdited                PullRequestEventAction = "edited"
	PullRequestActionReviewRequested       PullRequestEventAction = "review_requested"
	PullRequestActionReviewRequestRemoved  PullRequestEventAction = "review_request_removed"
)

// pullRequestRefreshActions is the set of actions that trigger a
// synchronise + status refresh per spec.md §4.1.
var pullRequestRefreshActions = map[PullRequestEventAction]bool{
	PullRequestActionOpened:              true,
	PullRequestActionSynchronize:         true,
	PullRequestActionReopened:            true,
	PullRequestActionReadyForReview:      true,
	PullRequestActionConvertedToDraft:    true,
	PullRequestActionClosed:              true,
	PullRequestActionEdited:              true,
	PullRequestActionReviewRequested:     true,
	PullRequestActionReviewRequestRemoved: true,
}

// TriggersRefresh reports whether this action should synchronise and
// refresh the PR's status, per spec.md §4.1.
func (a PullRequestEventAction) TriggersRefresh() bool {
	return pullRequestRefreshActions[a]
}

// PullRequestEvent is the "pull_request" webhook payload.
type PullRequestEvent struct {
	Action      PullRequestEventAction `json:"action"`
	Number      int                    `json:"number"`
	PullRequest PullRequest            `json:"pull_request"`
	Repo        Repo                   `json:"repository"`
	Sender      User                   `json:"sender"`
}

// IssueCommentEventAction is the "action" field of an issue_comment event.
type IssueCommentEventAction string

const (
	IssueCommentActionCreated IssueCommentEventAction = "created"
	IssueCommentActionEdited  IssueCommentEventAction = "edited"
	IssueCommentActionDeleted IssueCommentEventAction = "deleted"
)

// IssueCommentEvent is the "issue_comment" webhook payload. IsPullRequest
// mirrors GitHub's own representation: an issue_comment event targets a PR
// iff the issue has a non-nil pull_request sub-object.
type IssueCommentEvent struct {
	Action  IssueCommentEventAction `json:"action"`
	Comment IssueComment            `json:"comment"`
	Issue   struct {
		Number      int  `json:"number"`
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
	Repo   Repo `json:"repository"`
	Sender User `json:"sender"`
}

// IsPullRequest reports whether the commented-on issue is a pull request.
func (e IssueCommentEvent) IsPullRequest() bool {
	return e.Issue.PullRequest != nil
}

// PullRequestReviewEvent is the "pull_request_review" webhook payload.
type PullRequestReviewEvent struct {
	Action      string      `json:"action"`
	Review      Review      `json:"review"`
	PullRequest PullRequest `json:"pull_request"`
	Repo        Repo        `json:"repository"`
	Sender      User        `json:"sender"`
}

// CheckSuiteEvent is the "check_suite" webhook payload.
type CheckSuiteEvent struct {
	Action     string     `json:"action"`
	CheckSuite CheckSuite `json:"check_suite"`
	Repo       Repo       `json:"repository"`
}

// PingEvent is the "ping" webhook payload.
type PingEvent struct {
	Zen  string `json:"zen"`
	Repo Repo   `json:"repository"`
}
