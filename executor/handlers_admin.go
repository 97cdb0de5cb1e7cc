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
	"github.com/clarketm/scbot-engine/store"
)

func handleAdmin(ctx Context, c command.AdminCommand) (CommandExecutionResult, error) {
	switch c.Kind {
	case command.KindAdminHelp:
		return CommandExecutionResult{Actions: []ResultAction{comment(adminHelpText())}}, nil

	case command.KindAdminEnable:
		ctx.Repository.ManualInteraction = false
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminDisable:
		ctx.Repository.ManualInteraction = true
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return CommandExecutionResult{}, nil

	case command.KindAdminAddMergeRule:
		strat, err := config.ParseMergeStrategy(c.Strategy)
		if err != nil {
			return CommandExecutionResult{}, err
		}
		_, err = ctx.Store.SetMergeRule(store.MergeRule{
			RepositoryID: ctx.Repository.ID,
			BaseBranch:   c.BaseBranch,
			HeadBranch:   c.HeadBranch,
			Strategy:     strat,
		})
		if err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultNeededReviewers:
		ctx.Repository.DefaultNeededReviewers = c.NeededReviewers
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultMergeStrategy:
		strat, err := config.ParseMergeStrategy(c.Strategy)
		if err != nil {
			return CommandExecutionResult{}, err
		}
		ctx.Repository.DefaultStrategy = strat
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultPRTitleRegex:
		ctx.Repository.DefaultPRTitleRegex = c.TitleRegex
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultAutomerge:
		ctx.Repository.DefaultAutomergeEnabled = c.Enabled
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultQAStatus:
		ctx.Repository.DefaultQAEnabled = c.Enabled
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetDefaultChecksStatus:
		ctx.Repository.DefaultChecksEnabled = c.Enabled
		if err := ctx.Store.UpdateRepository(ctx.Repository); err != nil {
			return CommandExecutionResult{}, err
		}
		return ok(), nil

	case command.KindAdminSetNeededReviewers:
		ctx.PullRequest.NeededReviewers = &c.NeededReviewers
		return save(ctx, ok())

	case command.KindAdminResetReviewers:
		reviewers, err := ctx.Store.ListRequiredReviewers(ctx.PullRequest.ID)
		if err != nil {
			return CommandExecutionResult{}, err
		}
		for _, u := range reviewers {
			if err := ctx.Store.RemoveRequiredReviewer(ctx.PullRequest.ID, u); err != nil {
				return CommandExecutionResult{}, err
			}
		}
		return ok(), nil

	case command.KindAdminResetSummary:
		ctx.PullRequest.StatusCommentID = 0
		return save(ctx, ok())

	case command.KindAdminSync:
		return ok(), nil

	default:
		return CommandExecutionResult{}, fmt.Errorf("unhandled admin command %q", c.Kind)
	}
}

func adminHelpText() string {
	commands := []string{
		"admin-enable", "admin-disable",
		"admin-add-merge-rule <base> <head> <strategy>",
		"admin-set-default-needed-reviewers <n>", "admin-set-default-merge-strategy <s>",
		"admin-set-default-pr-title-regex <regex?>",
		"admin-set-default-automerge+/-", "admin-set-default-qa-status+/-", "admin-set-default-checks-status+/-",
		"admin-set-needed-reviewers <n>", "admin-reset-reviewers", "admin-reset-summary", "admin-sync",
	}
	return "Admin commands:\n" + strings.Join(commands, "\n")
}
