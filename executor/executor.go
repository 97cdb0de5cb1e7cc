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

// Package executor runs parsed commands against a command context,
// applying host-side effects (reactions, comments) and coalescing the
// batch's status-refresh requests into at most one refresh call, the way
// plugins/hold and plugins/lgtm each translate one recognised comment into
// a label mutation without knowing about each other.
package executor

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clarketm/scbot-engine/command"
	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

// Refresher triggers exactly one status refresh for a pull request. It is
// satisfied by updater.Updater; executor depends only on this interface to
// avoid an import cycle between the two packages.
type Refresher interface {
	Refresh(owner, name string, number int) error
}

// ResultActionKind tags the variant of a ResultAction.
type ResultActionKind string

const (
	ActionAddReaction  ResultActionKind = "add_reaction"
	ActionPostComment  ResultActionKind = "post_comment"
)

// ResultAction is one side effect a command handler asks the executor to
// perform against the triggering comment.
type ResultAction struct {
	Kind     ResultActionKind
	Reaction github.ReactionKind
	Comment  string
}

// CommandExecutionResult is a handler's return value: whether a status
// refresh should follow, and what host-visible actions to take.
type CommandExecutionResult struct {
	ShouldUpdateStatus bool
	Actions            []ResultAction
}

// Context carries everything a command handler needs to run.
type Context struct {
	Config   *config.Config
	Store    store.Store
	Host     github.HostClient
	Owner    string
	RepoName string
	Number   int

	Repository *store.Repository
	PullRequest *store.PullRequest
	Upstream    *github.PullRequest

	Author    string
	CommentID int
}

// Executor dispatches parsed commands to their handlers.
type Executor struct {
	log       *logrus.Entry
	refresher Refresher
}

// New builds an Executor that triggers refreshes through r.
func New(log *logrus.Entry, r Refresher) *Executor {
	return &Executor{log: log, refresher: r}
}

// Run processes every parsed result against ctx: it authorises each
// command, invokes its handler, performs the returned actions, and — if
// any handler asked for one — triggers exactly one status refresh once the
// whole batch has been processed.
func (e *Executor) Run(ctx Context, results []command.Result) error {
	shouldRefresh := false

	for _, r := range results {
		result, err := e.dispatch(ctx, r)
		if err != nil {
			e.log.WithError(err).Warn("command handler failed")
			result = CommandExecutionResult{Actions: []ResultAction{
				{Kind: ActionAddReaction, Reaction: github.ReactionConfused},
				{Kind: ActionPostComment, Comment: fmt.Sprintf("Command failed: %v", err)},
			}}
		}
		e.applyActions(ctx, result.Actions)
		if result.ShouldUpdateStatus {
			shouldRefresh = true
		}
	}

	if shouldRefresh && e.refresher != nil {
		return e.refresher.Refresh(ctx.Owner, ctx.RepoName, ctx.Number)
	}
	return nil
}

// RunTrusted runs results the same way Run does, except it skips the
// per-command authorisation checks. It exists for callers that have already
// authorised the whole batch themselves before calling in — currently only
// the external QA endpoint, which gates on a verified JWT plus an
// ExternalAccountRight before ever constructing a Context.
func (e *Executor) RunTrusted(ctx Context, results []command.Result) error {
	shouldRefresh := false

	for _, r := range results {
		result, err := e.dispatchTrusted(ctx, r)
		if err != nil {
			e.log.WithError(err).Warn("command handler failed")
			result = CommandExecutionResult{Actions: []ResultAction{
				{Kind: ActionAddReaction, Reaction: github.ReactionConfused},
				{Kind: ActionPostComment, Comment: fmt.Sprintf("Command failed: %v", err)},
			}}
		}
		e.applyActions(ctx, result.Actions)
		if result.ShouldUpdateStatus {
			shouldRefresh = true
		}
	}

	if shouldRefresh && e.refresher != nil {
		return e.refresher.Refresh(ctx.Owner, ctx.RepoName, ctx.Number)
	}
	return nil
}

func (e *Executor) dispatchTrusted(ctx Context, r command.Result) (CommandExecutionResult, error) {
	switch {
	case r.Error != nil:
		return handleParseError(*r.Error), nil
	case r.Admin != nil:
		return handleAdmin(ctx, *r.Admin)
	case r.User != nil:
		return handleUser(ctx, *r.User)
	default:
		return CommandExecutionResult{}, nil
	}
}

func (e *Executor) dispatch(ctx Context, r command.Result) (CommandExecutionResult, error) {
	switch {
	case r.Error != nil:
		return handleParseError(*r.Error), nil
	case r.Admin != nil:
		if !e.authorizeAdmin(ctx) {
			return forbidden(), nil
		}
		return handleAdmin(ctx, *r.Admin)
	case r.User != nil:
		if !e.authorizeUser(ctx) {
			return forbidden(), nil
		}
		return handleUser(ctx, *r.User)
	default:
		return CommandExecutionResult{}, nil
	}
}

// authorizeAdmin requires the comment author to be a flagged admin in the
// store, or to hold write permission on the repository.
func (e *Executor) authorizeAdmin(ctx Context) bool {
	if acc, err := ctx.Store.GetAccount(ctx.Author); err == nil && acc.IsAdmin {
		return true
	}
	level, err := ctx.Host.GetPermissionLevel(ctx.Owner, ctx.RepoName, ctx.Author)
	if err != nil {
		return false
	}
	return level.Atleast(github.Write)
}

// authorizeUser requires at least read permission on the repository.
func (e *Executor) authorizeUser(ctx Context) bool {
	level, err := ctx.Host.GetPermissionLevel(ctx.Owner, ctx.RepoName, ctx.Author)
	if err != nil {
		return false
	}
	return level.Atleast(github.Read)
}

func forbidden() CommandExecutionResult {
	return CommandExecutionResult{Actions: []ResultAction{
		{Kind: ActionAddReaction, Reaction: github.ReactionConfused},
		{Kind: ActionPostComment, Comment: "You are not authorised to run this command."},
	}}
}

func handleParseError(e command.ParseError) CommandExecutionResult {
	var msg string
	switch e.Kind {
	case command.ErrorUnknown:
		msg = fmt.Sprintf("Unknown command `%s`.", e.Name)
	case command.ErrorIncomplete:
		msg = fmt.Sprintf("Command `%s` is missing a required argument: %s", e.Name, e.Detail)
	case command.ErrorUnparseable:
		msg = fmt.Sprintf("Command `%s` has an invalid argument: %q", e.Name, e.Detail)
	default:
		msg = fmt.Sprintf("Could not parse command `%s`.", e.Name)
	}
	return CommandExecutionResult{Actions: []ResultAction{
		{Kind: ActionPostComment, Comment: msg},
	}}
}

func (e *Executor) applyActions(ctx Context, actions []ResultAction) {
	for _, a := range actions {
		switch a.Kind {
		case ActionAddReaction:
			if ctx.CommentID != 0 {
				if err := ctx.Host.AddReaction(ctx.Owner, ctx.RepoName, ctx.CommentID, a.Reaction); err != nil {
					e.log.WithError(err).Warn("failed to add reaction")
				}
			}
		case ActionPostComment:
			if _, err := ctx.Host.CreateComment(ctx.Owner, ctx.RepoName, ctx.Number, a.Comment); err != nil {
				e.log.WithError(err).Warn("failed to post comment")
			}
		}
	}
}
