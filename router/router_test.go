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

package router

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/executor"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/prsync"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
)

type fakeRefresher struct {
	calls []struct {
		owner, name string
		number      int
	}
}

func (f *fakeRefresher) Refresh(owner, name string, number int) error {
	f.calls = append(f.calls, struct {
		owner, name string
		number      int
	}{owner, name, number})
	return nil
}

func newTestRouter(t *testing.T) (*Router, *github.FakeClient, store.Store, *fakeRefresher) {
	t.Helper()
	s := memory.New()
	host := github.NewFakeHostClient()
	cfg := &config.Config{BotHandle: "@bot", WelcomeCommentEnabled: true, ExpectedCIApplicationSlug: "github-actions"}
	syncer := prsync.New(s, cfg)
	refresher := &fakeRefresher{}
	exec := executor.New(logrus.NewEntry(logrus.New()), refresher)
	r := New(logrus.NewEntry(logrus.New()), cfg, s, host, syncer, exec, refresher)
	return r, host, s, refresher
}

func TestHandlePingReturnsZen(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	require.Equal(t, "design for failure", r.HandlePing(github.PingEvent{Zen: "design for failure"}))
}

func TestHandlePullRequestOpenedCreatesAndWelcomes(t *testing.T) {
	r, host, s, refresher := newTestRouter(t)
	e := github.PullRequestEvent{
		Action: github.PullRequestActionOpened,
		Number: 1,
		Repo:   github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
		Sender: github.User{Login: "alice"},
		PullRequest: github.PullRequest{
			Number: 1,
			User:   github.User{Login: "alice"},
			Base:   github.PullRequestBranch{Ref: "main"},
			Head:   github.PullRequestBranch{Ref: "feature"},
		},
	}
	require.NoError(t, r.HandlePullRequest(e))

	repo, err := s.GetRepositoryByName("acme", "widgets")
	require.NoError(t, err)
	_, err = s.GetPullRequest(repo.ID, 1)
	require.NoError(t, err)
	require.Len(t, host.Comments, 1)
	require.Len(t, refresher.calls, 1)
}

func TestHandlePullRequestIgnoresOtherActions(t *testing.T) {
	r, _, _, refresher := newTestRouter(t)
	e := github.PullRequestEvent{
		Action: "labeled",
		Number: 1,
		Repo:   github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
	}
	require.NoError(t, r.HandlePullRequest(e))
	require.Empty(t, refresher.calls)
}

func TestHandleIssueCommentOnUntrackedPRWithoutAdminEnableIsDropped(t *testing.T) {
	r, _, _, refresher := newTestRouter(t)
	e := github.IssueCommentEvent{
		Action:  github.IssueCommentActionCreated,
		Comment: github.IssueComment{ID: 1, Body: "@bot ping"},
		Repo:    github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
		Sender:  github.User{Login: "alice"},
	}
	e.Issue.Number = 1
	pr := struct{}{}
	e.Issue.PullRequest = &pr
	require.NoError(t, r.HandleIssueComment(e))
	require.Empty(t, refresher.calls)
}

func TestHandleIssueCommentAdminEnableSynchronisesUntrackedPR(t *testing.T) {
	r, host, s, refresher := newTestRouter(t)
	host.Permissions["alice"] = github.Write
	host.PullRequests[1] = &github.PullRequest{Number: 1}
	e := github.IssueCommentEvent{
		Action:  github.IssueCommentActionCreated,
		Comment: github.IssueComment{ID: 1, Body: "@bot admin-enable"},
		Repo:    github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
		Sender:  github.User{Login: "alice"},
	}
	e.Issue.Number = 1
	pr := struct{}{}
	e.Issue.PullRequest = &pr

	require.NoError(t, r.HandleIssueComment(e))
	require.Len(t, refresher.calls, 1)

	repo, err := s.GetRepositoryByName("acme", "widgets")
	require.NoError(t, err)
	_, err = s.GetPullRequest(repo.ID, 1)
	require.NoError(t, err)
}

func TestHandleCheckSuiteRefreshesOnlyWhenShaAndSlugMatch(t *testing.T) {
	r, host, s, refresher := newTestRouter(t)
	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{DefaultChecksEnabled: true})
	require.NoError(t, err)
	_, err = s.GetOrCreatePullRequest(repo.ID, 1, store.PullRequestDefaults{})
	require.NoError(t, err)
	host.PullRequests[1] = &github.PullRequest{Number: 1, Head: github.PullRequestBranch{SHA: "abc123"}}

	e := github.CheckSuiteEvent{
		Repo: github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
		CheckSuite: github.CheckSuite{
			HeadSHA:      "abc123",
			PullRequests: []struct {
				Number int `json:"number"`
			}{{Number: 1}},
		},
	}
	e.CheckSuite.App.Slug = "github-actions"

	require.NoError(t, r.HandleCheckSuite(e))
	require.Len(t, refresher.calls, 1)

	e.CheckSuite.HeadSHA = "other-sha"
	require.NoError(t, r.HandleCheckSuite(e))
	require.Len(t, refresher.calls, 1)
}
