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

package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

func boolPtr(b bool) *bool { return &b }

func TestStepLabelForWipTakesPriority(t *testing.T) {
	s := PullRequestStatus{WIP: true, ChecksStatus: ChecksFail}
	require.Equal(t, Wip, StepLabelFor(s))
}

func TestStepLabelForAwaitingMergeIsDefault(t *testing.T) {
	s := PullRequestStatus{
		ValidPRTitle:         true,
		ChecksStatus:         ChecksPass,
		QAStatus:             store.QAStatusPass,
		NeededReviewersCount: 0,
	}
	require.Equal(t, AwaitingMerge, StepLabelFor(s))
}

func TestStepLabelForAwaitingQa(t *testing.T) {
	s := PullRequestStatus{
		ValidPRTitle:         true,
		ChecksStatus:         ChecksPass,
		QAStatus:             store.QAStatusWaiting,
		NeededReviewersCount: 0,
	}
	require.Equal(t, AwaitingQa, StepLabelFor(s))
}

func TestCommitStatusForAllGood(t *testing.T) {
	s := PullRequestStatus{
		ValidPRTitle: true,
		ChecksStatus: ChecksPass,
		QAStatus:     store.QAStatusPass,
		Mergeable:    true,
	}
	cs := CommitStatusFor(s)
	require.Equal(t, github.StatusStateSuccess, cs.State)
	require.Equal(t, "All good.", cs.Body)
}

func TestCommitStatusForMissingReviewers(t *testing.T) {
	s := PullRequestStatus{
		ValidPRTitle:             true,
		ChecksStatus:             ChecksPass,
		QAStatus:                 store.QAStatusPass,
		Mergeable:                true,
		MissingRequiredReviewers: []string{"alice"},
	}
	cs := CommitStatusFor(s)
	require.Equal(t, github.StatusStatePending, cs.State)
	require.Contains(t, cs.Body, "alice")
}

func TestBuildFoldsChecksAndReviews(t *testing.T) {
	repo := &store.Repository{DefaultChecksEnabled: true, DefaultNeededReviewers: 1}
	pr := &store.PullRequest{QAStatus: store.QAStatusPass}
	upstream := &github.PullRequest{Title: "Add widget", Mergeable: boolPtr(true)}
	now := time.Unix(0, 0)
	reviews := []github.Review{
		{User: github.User{Login: "alice"}, State: github.ReviewStateApproved, SubmittedAt: now},
		{User: github.User{Login: "alice"}, State: github.ReviewStateCommented, SubmittedAt: now.Add(time.Minute)},
		{User: github.User{Login: "bob"}, State: github.ReviewStateChangesRequested, SubmittedAt: now},
	}
	combined := &github.CombinedStatus{Statuses: []github.Status{
		{Context: "ci/build", State: github.StatusStateSuccess},
	}}

	s := Build(repo, pr, upstream, nil, reviews, combined, "merge")
	require.Contains(t, s.ApprovedReviewers, "alice")
	require.True(t, s.ChangesRequired)
	require.Equal(t, ChecksPass, s.ChecksStatus)
}

func TestStripStepLabelsRemovesKnownOnly(t *testing.T) {
	in := []github.Label{{Name: AwaitingReview}, {Name: "needs-rebase"}}
	out := StripStepLabels(in)
	require.Len(t, out, 1)
	require.Equal(t, "needs-rebase", out[0].Name)
}
