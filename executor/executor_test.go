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

package executor

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/command"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
)

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) Refresh(owner, name string, number int) error {
	f.calls++
	return nil
}

func newTestContext(t *testing.T) (Context, *github.FakeClient, store.Store) {
	t.Helper()
	s := memory.New()
	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{DefaultNeededReviewers: 1})
	require.NoError(t, err)
	pr, err := s.GetOrCreatePullRequest(repo.ID, 1, store.PullRequestDefaults{QAStatus: store.QAStatusWaiting})
	require.NoError(t, err)

	host := github.NewFakeHostClient()
	host.Permissions["alice"] = github.Write
	host.PullRequests[1] = &github.PullRequest{Number: 1, Title: "Add widget"}
	host.Comments[1] = &github.IssueComment{ID: 1, Body: "@bot qa+"}

	ctx := Context{
		Store:       s,
		Host:        host,
		Owner:       "acme",
		RepoName:    "widgets",
		Number:      1,
		Repository:  repo,
		PullRequest: pr,
		Upstream:    host.PullRequests[1],
		Author:      "alice",
		CommentID:   1,
	}
	return ctx, host, s
}

func TestExecutorRunsQACommandAndRefreshesOnce(t *testing.T) {
	ctx, _, s := newTestContext(t)
	refresher := &fakeRefresher{}
	e := New(logrus.NewEntry(logrus.New()), refresher)

	results := command.Parse("@bot qa+\n@bot ping", "@bot")
	require.NoError(t, e.Run(ctx, results))
	require.Equal(t, 1, refresher.calls)

	pr, err := s.GetPullRequest(ctx.Repository.ID, 1)
	require.NoError(t, err)
	require.Equal(t, store.QAStatusPass, pr.QAStatus)
}

func TestExecutorRejectsUnauthorizedAdmin(t *testing.T) {
	ctx, host, _ := newTestContext(t)
	host.Permissions["alice"] = github.Read
	refresher := &fakeRefresher{}
	e := New(logrus.NewEntry(logrus.New()), refresher)

	results := command.Parse("@bot admin-enable", "@bot")
	require.NoError(t, e.Run(ctx, results))
	require.Equal(t, 0, refresher.calls)
}

func TestExecutorRunTrustedSkipsAuthorisation(t *testing.T) {
	ctx, host, s := newTestContext(t)
	host.Permissions["alice"] = github.None
	refresher := &fakeRefresher{}
	e := New(logrus.NewEntry(logrus.New()), refresher)

	results := []command.Result{{User: &command.UserCommand{Kind: command.KindQA, Enabled: true}}}
	require.NoError(t, e.RunTrusted(ctx, results))
	require.Equal(t, 1, refresher.calls)

	pr, err := s.GetPullRequest(ctx.Repository.ID, 1)
	require.NoError(t, err)
	require.Equal(t, store.QAStatusPass, pr.QAStatus)
}

func TestExecutorHandlesParseErrorsWithoutAbortingBatch(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	refresher := &fakeRefresher{}
	e := New(logrus.NewEntry(logrus.New()), refresher)

	results := command.Parse("@bot bogus\n@bot qa+", "@bot")
	require.NoError(t, e.Run(ctx, results))
	require.Equal(t, 1, refresher.calls)
}
