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

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/store"
)

func TestGetOrCreateRepositoryIsIdempotent(t *testing.T) {
	s := New()
	r1, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{DefaultNeededReviewers: 2})
	require.NoError(t, err)
	r2, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{DefaultNeededReviewers: 99})
	require.NoError(t, err)
	require.Equal(t, r1.ID, r2.ID)
	require.EqualValues(t, 2, r2.DefaultNeededReviewers)
}

func TestGetRepositoryByNameNotFound(t *testing.T) {
	s := New()
	_, err := s.GetRepositoryByName("acme", "missing")
	require.Error(t, err)
}

func TestPullRequestLifecycle(t *testing.T) {
	s := New()
	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	require.NoError(t, err)

	pr, err := s.GetOrCreatePullRequest(repo.ID, 42, store.PullRequestDefaults{QAStatus: store.QAStatusWaiting})
	require.NoError(t, err)
	require.Equal(t, 42, pr.Number)

	pr.Locked = true
	pr.LockReason = "manual hold"
	require.NoError(t, s.UpdatePullRequest(pr))

	fetched, err := s.GetPullRequest(repo.ID, 42)
	require.NoError(t, err)
	require.True(t, fetched.Locked)
	require.Equal(t, "manual hold", fetched.LockReason)
}

func TestMergeRuleUpsert(t *testing.T) {
	s := New()
	repo, _ := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})

	_, err := s.SetMergeRule(store.MergeRule{RepositoryID: repo.ID, BaseBranch: "main", HeadBranch: "*", Strategy: "squash"})
	require.NoError(t, err)
	_, err = s.SetMergeRule(store.MergeRule{RepositoryID: repo.ID, BaseBranch: "main", HeadBranch: "*", Strategy: "rebase"})
	require.NoError(t, err)

	rules, err := s.ListMergeRules(repo.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.EqualValues(t, "rebase", rules[0].Strategy)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := New()
	repo, _ := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	_, _ = s.GetOrCreatePullRequest(repo.ID, 7, store.PullRequestDefaults{})
	require.NoError(t, s.AddRequiredReviewer(1, "alice"))
	require.NoError(t, s.AddExternalAccountRight("ci-bot", repo.ID))

	doc, err := s.Export()
	require.NoError(t, err)

	dst := New()
	require.NoError(t, dst.Import(*doc))

	got, err := dst.GetRepositoryByName("acme", "widgets")
	require.NoError(t, err)
	require.Equal(t, repo.ID, got.ID)

	has, err := dst.HasExternalAccountRight("ci-bot", repo.ID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestRequiredReviewers(t *testing.T) {
	s := New()
	require.NoError(t, s.AddRequiredReviewer(1, "alice"))
	require.NoError(t, s.AddRequiredReviewer(1, "bob"))
	list, err := s.ListRequiredReviewers(1)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, list)

	require.NoError(t, s.RemoveRequiredReviewer(1, "alice"))
	list, err = s.ListRequiredReviewers(1)
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, list)
}
