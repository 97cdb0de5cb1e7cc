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

import "fmt"

// FakeClient is an in-memory HostClient used by tests across the engine.
// It is the test-side twin of Client's own dry/fake modes, generalized to
// record enough state (labels, comments, statuses, merges) that tests can
// assert on it directly, the way Prow's plugin tests assert against
// fakegithub's recorded calls.
type FakeClient struct {
	PullRequests map[int]*PullRequest
	Reviews      map[int][]Review
	Statuses     map[string][]Status // ref -> pushed statuses, in push order
	Comments     map[int]*IssueComment
	Labels       map[int][]Label
	Reactions    map[int][]ReactionKind
	Permissions  map[string]RepoPermissionLevel // "login" -> level
	Merged       map[int]MergeDetails
	MergeErr     error
	nextComment  int
}

// NewFakeHostClient builds an empty FakeClient.
func NewFakeHostClient() *FakeClient {
	return &FakeClient{
		PullRequests: map[int]*PullRequest{},
		Reviews:      map[int][]Review{},
		Statuses:     map[string][]Status{},
		Comments:     map[int]*IssueComment{},
		Labels:       map[int][]Label{},
		Reactions:    map[int][]ReactionKind{},
		Permissions:  map[string]RepoPermissionLevel{},
		Merged:       map[int]MergeDetails{},
	}
}

func (f *FakeClient) GetPullRequest(owner, repo string, number int) (*PullRequest, error) {
	pr, ok := f.PullRequests[number]
	if !ok {
		return nil, fmt.Errorf("no such pull request #%d", number)
	}
	return pr, nil
}

func (f *FakeClient) ListReviews(owner, repo string, number int) ([]Review, error) {
	return f.Reviews[number], nil
}

func (f *FakeClient) GetCombinedStatus(owner, repo, ref string) (*CombinedStatus, error) {
	statuses := f.Statuses[ref]
	cs := &CombinedStatus{State: StatusStatePending, Statuses: statuses}
	return cs, nil
}

func (f *FakeClient) CreateStatus(owner, repo, ref string, s Status) error {
	f.Statuses[ref] = append(f.Statuses[ref], s)
	return nil
}

func (f *FakeClient) CreateComment(owner, repo string, number int, body string) (*IssueComment, error) {
	f.nextComment++
	ic := &IssueComment{ID: f.nextComment, Body: body}
	f.Comments[ic.ID] = ic
	return ic, nil
}

func (f *FakeClient) UpdateComment(owner, repo string, commentID int, body string) error {
	ic, ok := f.Comments[commentID]
	if !ok {
		return fmt.Errorf("no such comment %d", commentID)
	}
	ic.Body = body
	return nil
}

func (f *FakeClient) CommentExists(owner, repo string, commentID int) (bool, error) {
	_, ok := f.Comments[commentID]
	return ok, nil
}

func (f *FakeClient) AddReaction(owner, repo string, commentID int, kind ReactionKind) error {
	f.Reactions[commentID] = append(f.Reactions[commentID], kind)
	return nil
}

func (f *FakeClient) ListIssueLabels(owner, repo string, number int) ([]Label, error) {
	return f.Labels[number], nil
}

func (f *FakeClient) AddLabel(owner, repo string, number int, label string) error {
	if HasLabel(label, f.Labels[number]) {
		return nil
	}
	f.Labels[number] = append(f.Labels[number], Label{Name: label})
	return nil
}

func (f *FakeClient) RemoveLabel(owner, repo string, number int, label string) error {
	var kept []Label
	for _, l := range f.Labels[number] {
		if l.Name != label {
			kept = append(kept, l)
		}
	}
	f.Labels[number] = kept
	return nil
}

func (f *FakeClient) RequestReviewers(owner, repo string, number int, logins []string) error {
	return nil
}

func (f *FakeClient) RemoveRequestedReviewers(owner, repo string, number int, logins []string) error {
	return nil
}

func (f *FakeClient) GetPermissionLevel(owner, repo, user string) (RepoPermissionLevel, error) {
	if lvl, ok := f.Permissions[user]; ok {
		return lvl, nil
	}
	return Read, nil
}

func (f *FakeClient) Merge(owner, repo string, number int, details MergeDetails) error {
	if f.MergeErr != nil {
		return f.MergeErr
	}
	f.Merged[number] = details
	if pr, ok := f.PullRequests[number]; ok {
		pr.Merged = true
	}
	return nil
}

func (f *FakeClient) SearchGif(query string) (string, error) {
	return "https://example.invalid/gif/" + query, nil
}

var _ HostClient = (*FakeClient)(nil)
