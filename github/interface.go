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

// HostClient is the strongly-typed surface every other package in the
// engine uses to talk to the hosting platform. Client (this package)
// implements it against the real REST API; fake.go implements it for tests.
type HostClient interface {
	GetPullRequest(owner, repo string, number int) (*PullRequest, error)
	ListReviews(owner, repo string, number int) ([]Review, error)
	GetCombinedStatus(owner, repo, ref string) (*CombinedStatus, error)
	CreateStatus(owner, repo, ref string, s Status) error

	CreateComment(owner, repo string, number int, body string) (*IssueComment, error)
	UpdateComment(owner, repo string, commentID int, body string) error
	CommentExists(owner, repo string, commentID int) (bool, error)
	AddReaction(owner, repo string, commentID int, kind ReactionKind) error

	ListIssueLabels(owner, repo string, number int) ([]Label, error)
	AddLabel(owner, repo string, number int, label string) error
	RemoveLabel(owner, repo string, number int, label string) error

	RequestReviewers(owner, repo string, number int, logins []string) error
	RemoveRequestedReviewers(owner, repo string, number int, logins []string) error

	GetPermissionLevel(owner, repo, user string) (RepoPermissionLevel, error)

	Merge(owner, repo string, number int, details MergeDetails) error

	SearchGif(query string) (string, error)
}
