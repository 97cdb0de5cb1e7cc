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

// Package router demultiplexes a decoded webhook envelope to the right
// handler, the way hook/server.go's demuxEvent switches on the
// X-GitHub-Event header before handing the payload to plugins. Unlike
// demuxEvent, there is no plugin registry here: every event kind has
// exactly one fixed handler, matching spec.md §4.1.
package router

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clarketm/scbot-engine/command"
	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/executor"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/prsync"
	"github.com/clarketm/scbot-engine/rules"
	"github.com/clarketm/scbot-engine/store"
)

// Router dispatches decoded webhook events per spec.md §4.1.
type Router struct {
	log       *logrus.Entry
	cfg       *config.Config
	store     store.Store
	host      github.HostClient
	syncer    *prsync.Syncer
	executor  *executor.Executor
	refresher executor.Refresher
}

// New builds a Router.
func New(log *logrus.Entry, cfg *config.Config, s store.Store, host github.HostClient, syncer *prsync.Syncer, exec *executor.Executor, refresher executor.Refresher) *Router {
	return &Router{log: log, cfg: cfg, store: s, host: host, syncer: syncer, executor: exec, refresher: refresher}
}

// HandlePing answers a ping event with the payload's zen field.
func (r *Router) HandlePing(e github.PingEvent) string {
	return e.Zen
}

// HandlePullRequest ensures a local PR record exists for refresh-triggering
// actions, applies any matching pull-request rules, posts the welcome
// comment on Opened if configured, and queues a status refresh.
func (r *Router) HandlePullRequest(e github.PullRequestEvent) error {
	if !e.Action.TriggersRefresh() {
		return nil
	}
	owner, name := e.Repo.Owner.Login, e.Repo.Name

	repo, pr, err := r.syncer.Sync(owner, name, e.Number, prsync.TriggerWebhook)
	if err != nil {
		if err == prsync.ErrManualInteraction {
			return nil
		}
		return fmt.Errorf("synchronising %s/%s#%d: %w", owner, name, e.Number, err)
	}

	prRules, err := r.store.ListPullRequestRules(repo.ID)
	if err != nil {
		return fmt.Errorf("listing pull request rules: %w", err)
	}
	if rules.Evaluate(prRules, &e.PullRequest, pr) > 0 {
		if err := r.store.UpdatePullRequest(pr); err != nil {
			return fmt.Errorf("persisting rule-applied pull request: %w", err)
		}
	}

	if e.Action == github.PullRequestActionOpened && r.cfg.WelcomeCommentEnabled {
		if _, err := r.host.CreateComment(owner, name, e.Number, welcomeMessage(e.Sender.Login)); err != nil {
			r.log.WithError(err).Warn("failed to post welcome comment")
		}
	}

	return r.refresher.Refresh(owner, name, e.Number)
}

// HandleIssueComment parses commands out of newly created comments on pull
// requests. If the local PR is already tracked, the commands run through
// the executor. Otherwise, exactly one admin-enable command from an
// authorised author synchronises the PR into existence; anything else is
// logged and dropped.
func (r *Router) HandleIssueComment(e github.IssueCommentEvent) error {
	if e.Action != github.IssueCommentActionCreated || !e.IsPullRequest() {
		return nil
	}
	owner, name := e.Repo.Owner.Login, e.Repo.Name
	number := e.Issue.Number
	author := e.Sender.Login

	results := command.Parse(e.Comment.Body, r.cfg.BotHandle)

	if repo, err := r.store.GetRepositoryByName(owner, name); err == nil {
		if pr, err := r.store.GetPullRequest(repo.ID, number); err == nil {
			return r.runCommands(owner, name, number, repo, pr, author, e.Comment.ID, results)
		}
	}

	if !authorizesAdminEnable(results) {
		r.log.WithFields(logrus.Fields{"repo": owner + "/" + name, "number": number}).
			Info("dropping comment on untracked pull request")
		return nil
	}
	if acc, err := r.store.GetAccount(author); err != nil || !acc.IsAdmin {
		level, err := r.host.GetPermissionLevel(owner, name, author)
		if err != nil || !level.Atleast(github.Write) {
			r.log.WithField("author", author).Info("unauthorised admin-enable on untracked pull request")
			return nil
		}
	}

	if _, _, err := r.syncer.Sync(owner, name, number, prsync.TriggerAdminEnable); err != nil {
		return fmt.Errorf("synchronising %s/%s#%d on admin-enable: %w", owner, name, number, err)
	}
	return r.refresher.Refresh(owner, name, number)
}

// authorizesAdminEnable reports whether results contains exactly one
// admin-enable command.
func authorizesAdminEnable(results []command.Result) bool {
	count := 0
	for _, res := range results {
		if res.Admin != nil && res.Admin.Kind == command.KindAdminEnable {
			count++
		}
	}
	return count == 1
}

func (r *Router) runCommands(owner, name string, number int, repo *store.Repository, pr *store.PullRequest, author string, commentID int, results []command.Result) error {
	upstream, err := r.host.GetPullRequest(owner, name, number)
	if err != nil {
		return fmt.Errorf("fetching pull request %s/%s#%d: %w", owner, name, number, err)
	}
	ctx := executor.Context{
		Config:      r.cfg,
		Store:       r.store,
		Host:        r.host,
		Owner:       owner,
		RepoName:    name,
		Number:      number,
		Repository:  repo,
		PullRequest: pr,
		Upstream:    upstream,
		Author:      author,
		CommentID:   commentID,
	}
	return r.executor.Run(ctx, results)
}

// HandlePullRequestReview synchronises the PR and queues a status refresh.
func (r *Router) HandlePullRequestReview(e github.PullRequestReviewEvent) error {
	owner, name := e.Repo.Owner.Login, e.Repo.Name
	number := e.PullRequest.Number

	if _, _, err := r.syncer.Sync(owner, name, number, prsync.TriggerWebhook); err != nil {
		if err == prsync.ErrManualInteraction {
			return nil
		}
		return fmt.Errorf("synchronising %s/%s#%d: %w", owner, name, number, err)
	}
	return r.refresher.Refresh(owner, name, number)
}

// HandleCheckSuite queues a status refresh only when the suite's first
// associated PR is tracked, the suite's application matches the configured
// CI slug, the suite's head SHA matches the PR's current head, and the PR
// has checks enabled.
func (r *Router) HandleCheckSuite(e github.CheckSuiteEvent) error {
	if len(e.CheckSuite.PullRequests) == 0 {
		return nil
	}
	if e.CheckSuite.App.Slug != r.cfg.ExpectedCIApplicationSlug {
		return nil
	}
	owner, name := e.Repo.Owner.Login, e.Repo.Name
	number := e.CheckSuite.PullRequests[0].Number

	repo, err := r.store.GetRepositoryByName(owner, name)
	if err != nil {
		return nil
	}
	pr, err := r.store.GetPullRequest(repo.ID, number)
	if err != nil {
		return nil
	}
	checksEnabled := repo.DefaultChecksEnabled
	if pr.ChecksEnabled != nil {
		checksEnabled = *pr.ChecksEnabled
	}
	if !checksEnabled {
		return nil
	}

	upstream, err := r.host.GetPullRequest(owner, name, number)
	if err != nil {
		return fmt.Errorf("fetching pull request %s/%s#%d: %w", owner, name, number, err)
	}
	if upstream.Head.SHA != e.CheckSuite.HeadSHA {
		return nil
	}
	return r.refresher.Refresh(owner, name, number)
}

func welcomeMessage(author string) string {
	return fmt.Sprintf(":tada: Welcome, _%s_ !\n\nA maintainer will review this pull request soon. Comment `help` for the list of available commands.", author)
}
