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

package updater

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	lockmemory "github.com/clarketm/scbot-engine/lock/memory"
	"github.com/clarketm/scbot-engine/status"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
)

func boolPtr(b bool) *bool { return &b }

func newTestUpdater(t *testing.T) (*Updater, *github.FakeClient, store.Store, *store.Repository) {
	t.Helper()
	s := memory.New()
	host := github.NewFakeHostClient()
	l := lockmemory.New(0)
	u := New(logrus.NewEntry(logrus.New()), s, host, l)

	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{
		DefaultStrategy:        string(config.MergeStrategyMerge),
		DefaultNeededReviewers: 0,
		DefaultChecksEnabled:   false,
	})
	require.NoError(t, err)
	return u, host, s, repo
}

func TestRefreshNoOpsWhenPullRequestUnknown(t *testing.T) {
	u, _, _, _ := newTestUpdater(t)
	require.NoError(t, u.Refresh("acme", "widgets", 99))
}

func TestRefreshSetsAwaitingMergeLabelAndSucceedsCommitStatus(t *testing.T) {
	u, host, s, repo := newTestUpdater(t)
	_, err := s.GetOrCreatePullRequest(repo.ID, 1, store.PullRequestDefaults{QAStatus: store.QAStatusPass})
	require.NoError(t, err)

	host.PullRequests[1] = &github.PullRequest{
		Number:    1,
		Title:     "Add widget",
		Mergeable: boolPtr(true),
		Base:      github.PullRequestBranch{Ref: "main"},
		Head:      github.PullRequestBranch{Ref: "feature", SHA: "deadbeef"},
	}

	require.NoError(t, u.Refresh("acme", "widgets", 1))

	require.Len(t, host.Labels[1], 1)
	require.Equal(t, status.AwaitingMerge, host.Labels[1][0].Name)
	require.Len(t, host.Statuses["deadbeef"], 1)
	require.Equal(t, github.StatusStateSuccess, host.Statuses["deadbeef"][0].State)
	require.Len(t, host.Comments, 1)
}

func TestRefreshReplacesStaleStepLabel(t *testing.T) {
	u, host, s, repo := newTestUpdater(t)
	_, err := s.GetOrCreatePullRequest(repo.ID, 1, store.PullRequestDefaults{QAStatus: store.QAStatusWaiting})
	require.NoError(t, err)
	host.Labels[1] = []github.Label{{Name: status.AwaitingReview}, {Name: "keep-me"}}
	host.PullRequests[1] = &github.PullRequest{
		Number: 1,
		Title:  "Add widget",
		Base:   github.PullRequestBranch{Ref: "main"},
		Head:   github.PullRequestBranch{Ref: "feature", SHA: "cafef00d"},
	}

	require.NoError(t, u.Refresh("acme", "widgets", 1))

	var names []string
	for _, l := range host.Labels[1] {
		names = append(names, l.Name)
	}
	require.Contains(t, names, "keep-me")
	require.Contains(t, names, status.AwaitingQa)
	require.NotContains(t, names, status.AwaitingReview)
}

func TestRefreshAutomergesWhenReady(t *testing.T) {
	u, host, s, repo := newTestUpdater(t)
	repo.DefaultAutomergeEnabled = true
	require.NoError(t, s.UpdateRepository(repo))
	_, err := s.GetOrCreatePullRequest(repo.ID, 1, store.PullRequestDefaults{QAStatus: store.QAStatusPass})
	require.NoError(t, err)
	host.PullRequests[1] = &github.PullRequest{
		Number:    1,
		Title:     "Add widget",
		Mergeable: boolPtr(true),
		Base:      github.PullRequestBranch{Ref: "main"},
		Head:      github.PullRequestBranch{Ref: "feature", SHA: "f00d"},
	}

	require.NoError(t, u.Refresh("acme", "widgets", 1))
	require.Contains(t, host.Merged, 1)
}
