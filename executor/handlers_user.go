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
	"fmt"
	"strings"

	"github.com/clarketm/scbot-engine/command"
	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/merge"
	"github.com/clarketm/scbot-engine/store"
)

func handleUser(ctx Context, c command.UserCommand) (CommandExecutionResult, error) {
	switch c.Kind {
	case command.KindNoQA:
		if c.Enabled {
			ctx.PullRequest.QAStatus = store.QAStatusSkipped
		} else {
			ctx.PullRequest.QAStatus = store.QAStatusWaiting
		}
		return save(ctx, ok())
	case command.KindQA:
		if c.Enabled {
			ctx.PullRequest.QAStatus = store.QAStatusPass
		} else {
			ctx.PullRequest.QAStatus = store.QAStatusFail
		}
		return save(ctx, ok())
	case command.KindQAQuery:
		return CommandExecutionResult{Actions: []ResultAction{
			comment(fmt.Sprintf("QA status is currently `%s`.", ctx.PullRequest.QAStatus)),
		}}, nil
	case command.KindNoChecks:
		enabled := !c.Enabled
		ctx.PullRequest.ChecksEnabled = &enabled
		return save(ctx, ok())
	case command.KindAutomerge:
		ctx.PullRequest.AutomergeEnabled = &c.Enabled
		return save(ctx, ok())
	case command.KindLock:
		ctx.PullRequest.Locked = c.Enabled
		if c.Enabled {
			ctx.PullRequest.LockReason = c.Reason
		} else {
			ctx.PullRequest.LockReason = ""
		}
		return save(ctx, ok())
	case command.KindReviewersAdd:
		if err := ctx.Host.RequestReviewers(ctx.Owner, ctx.RepoName, ctx.Number, c.Users); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil
	case command.KindReviewersRemove:
		if err := ctx.Host.RemoveRequestedReviewers(ctx.Owner, ctx.RepoName, ctx.Number, c.Users); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil
	case command.KindRequiredReviewersAdd:
		for _, u := range c.Users {
			if err := ctx.Store.AddRequiredReviewer(ctx.PullRequest.ID, u); err != nil {
				return CommandExecutionResult{}, err
			}
		}
		return ok(), nil
	case command.KindRequiredReviewersRemove:
		for _, u := range c.Users {
			if err := ctx.Store.RemoveRequiredReviewer(ctx.PullRequest.ID, u); err != nil {
				return CommandExecutionResult{}, err
			}
		}
		return ok(), nil
	case command.KindStrategySet:
		strat, err := config.ParseMergeStrategy(c.Strategy)
		if err != nil {
			return CommandExecutionResult{}, err
		}
		ctx.PullRequest.StrategyOverride = &strat
		return save(ctx, ok())
	case command.KindStrategyUnset:
		ctx.PullRequest.StrategyOverride = nil
		return save(ctx, ok())
	case command.KindMerge:
		return handleMergeCommand(ctx, c)
	case command.KindLabelsAdd:
		if err := ctx.Host.AddLabel(ctx.Owner, ctx.RepoName, ctx.Number, c.Label); err != nil {
			return CommandExecutionResult{}, err
		}
		return CommandExecutionResult{}, nil
	case command.KindLabelsRemove:
		if err := ctx.Host.RemoveLabel(ctx.Owner, ctx.RepoName, ctx.Number, c.Label); err != nil {
			return CommandExecutionResult{}, err
		}
		return CommandExecutionResult{}, nil
	case command.KindPing:
		return CommandExecutionResult{Actions: []ResultAction{comment("pong")}}, nil
	case command.KindGif:
		url, err := ctx.Host.SearchGif(c.Terms)
		if err != nil {
			return CommandExecutionResult{}, err
		}
		if url == "" {
			return CommandExecutionResult{Actions: []ResultAction{comment("No GIF found.")}}, nil
		}
		return CommandExecutionResult{Actions: []ResultAction{comment(url)}}, nil
	case command.KindIsAdmin:
		acc, err := ctx.Store.GetAccount(ctx.Author)
		isAdmin := err == nil && acc.IsAdmin
		return CommandExecutionResult{Actions: []ResultAction{
			comment(fmt.Sprintf("`%s` is-admin: %t", ctx.Author, isAdmin)),
		}}, nil
	case command.KindHelp:
		return CommandExecutionResult{Actions: []ResultAction{comment(userHelpText())}}, nil
	default:
		return CommandExecutionResult{}, fmt.Errorf("unhandled user command %q", c.Kind)
	}
}

func handleMergeCommand(ctx Context, c command.UserCommand) (CommandExecutionResult, error) {
	repo := ctx.Repository
	pr := ctx.PullRequest

	rules, err := ctx.Store.ListMergeRules(repo.ID)
	if err != nil {
		return CommandExecutionResult{}, err
	}
	strategy := merge.ResolveStrategy(repo, pr, rules, ctx.Upstream.Base.Ref, ctx.Upstream.Head.Ref)
	if c.Strategy != "" {
		strategy, _ = config.ParseMergeStrategy(c.Strategy)
	}

	if err := merge.Merge(ctx.Host, ctx.Owner, ctx.RepoName, ctx.Upstream, strategy); err != nil {
		return CommandExecutionResult{Actions: []ResultAction{
			{Kind: ActionAddReaction, Reaction: github.ReactionThumbsDown},
			comment(fmt.Sprintf("Merge failed: %v", err)),
		}}, nil
	}
	return CommandExecutionResult{ShouldUpdateStatus: true, Actions: []ResultAction{
		{Kind: ActionAddReaction, Reaction: github.ReactionThumbsUp},
	}}, nil
}

func save(ctx Context, result CommandExecutionResult) (CommandExecutionResult, error) {
	if err := ctx.Store.UpdatePullRequest(ctx.PullRequest); err != nil {
		return CommandExecutionResult{}, err
	}
	return result, nil
}

func ok() CommandExecutionResult {
	return CommandExecutionResult{ShouldUpdateStatus: true}
}

func comment(text string) ResultAction {
	return ResultAction{Kind: ActionPostComment, Comment: text}
}

func userHelpText() string {
	commands := []string{
		"noqa+/-", "qa+/-", "qa?", "nochecks+/-", "automerge+/-", "lock+/- <reason?>",
		"r+/- <users...>", "req+/- <users...>", "strategy+ <merge|squash|rebase>", "strategy-",
		"merge <strategy?>", "labels+/- <label>", "ping", "gif <terms...>", "is-admin", "help",
	}
	return "Available commands:\n" + strings.Join(commands, "\n")
}
