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

package command

import (
	"strconv"
	"strings"

	"github.com/clarketm/scbot-engine/config"
)

// Parse tokenises a comment body into an ordered list of Results, one per
// line that starts with botHandle. Lines not starting with the handle are
// not commands and produce no Result.
func Parse(body, botHandle string) []Result {
	var out []Result
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, botHandle) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, botHandle))
		if rest == "" {
			continue
		}
		fields := strings.Fields(rest)
		out = append(out, parseOne(fields[0], fields[1:]))
	}
	return out
}

func stripPolarity(name string) (base string, enabled, has bool) {
	if strings.HasSuffix(name, "+") {
		return name[:len(name)-1], true, true
	}
	if strings.HasSuffix(name, "-") {
		return name[:len(name)-1], false, true
	}
	return name, false, false
}

func validStrategy(s string) bool {
	_, err := config.ParseMergeStrategy(s)
	return err == nil
}

func unknown(name string) Result {
	return Result{Error: &ParseError{Kind: ErrorUnknown, Name: name}}
}

func incomplete(name, detail string) Result {
	return Result{Error: &ParseError{Kind: ErrorIncomplete, Name: name, Detail: detail}}
}

func unparseable(name, detail string) Result {
	return Result{Error: &ParseError{Kind: ErrorUnparseable, Name: name, Detail: detail}}
}

func parseOne(name string, args []string) Result {
	if strings.HasPrefix(name, "admin-") {
		return parseAdmin(name, args)
	}
	return parseUser(name, args)
}

func parseUser(name string, args []string) Result {
	base, enabled, has := stripPolarity(name)

	switch UserKind(base) {
	case KindNoQA:
		if !has {
			return incomplete(name, "expected noqa+ or noqa-")
		}
		return Result{User: &UserCommand{Kind: KindNoQA, Enabled: enabled}}
	case KindQA:
		if !has {
			return incomplete(name, "expected qa+ or qa-")
		}
		return Result{User: &UserCommand{Kind: KindQA, Enabled: enabled}}
	case KindNoChecks:
		if !has {
			return incomplete(name, "expected nochecks+ or nochecks-")
		}
		return Result{User: &UserCommand{Kind: KindNoChecks, Enabled: enabled}}
	case KindAutomerge:
		if !has {
			return incomplete(name, "expected automerge+ or automerge-")
		}
		return Result{User: &UserCommand{Kind: KindAutomerge, Enabled: enabled}}
	case KindLock:
		if !has {
			return incomplete(name, "expected lock+ or lock-")
		}
		return Result{User: &UserCommand{Kind: KindLock, Enabled: enabled, Reason: strings.Join(args, " ")}}
	}

	switch UserKind(name) {
	case KindQAQuery:
		return Result{User: &UserCommand{Kind: KindQAQuery}}
	case KindReviewersAdd, KindReviewersRemove:
		if len(args) == 0 {
			return incomplete(name, "expected at least one username")
		}
		return Result{User: &UserCommand{Kind: UserKind(name), Users: args}}
	case KindRequiredReviewersAdd, KindRequiredReviewersRemove:
		if len(args) == 0 {
			return incomplete(name, "expected at least one username")
		}
		return Result{User: &UserCommand{Kind: UserKind(name), Users: args}}
	case KindStrategySet:
		if len(args) != 1 {
			return incomplete(name, "expected a single strategy name")
		}
		if !validStrategy(args[0]) {
			return unparseable(name, args[0])
		}
		return Result{User: &UserCommand{Kind: KindStrategySet, Strategy: args[0]}}
	case KindStrategyUnset:
		return Result{User: &UserCommand{Kind: KindStrategyUnset}}
	case KindMerge:
		strat := ""
		if len(args) > 0 {
			strat = args[0]
			if !validStrategy(strat) {
				return unparseable(name, strat)
			}
		}
		return Result{User: &UserCommand{Kind: KindMerge, Strategy: strat}}
	case KindLabelsAdd, KindLabelsRemove:
		if len(args) == 0 {
			return incomplete(name, "expected a label name")
		}
		return Result{User: &UserCommand{Kind: UserKind(name), Label: args[0]}}
	case KindPing:
		return Result{User: &UserCommand{Kind: KindPing}}
	case KindGif:
		if len(args) == 0 {
			return incomplete(name, "expected search terms")
		}
		return Result{User: &UserCommand{Kind: KindGif, Terms: strings.Join(args, " ")}}
	case KindIsAdmin:
		return Result{User: &UserCommand{Kind: KindIsAdmin}}
	case KindHelp:
		return Result{User: &UserCommand{Kind: KindHelp}}
	}

	return unknown(name)
}

func parseAdmin(name string, args []string) Result {
	base, enabled, has := stripPolarity(name)

	switch AdminKind(base) {
	case KindAdminSetDefaultAutomerge, KindAdminSetDefaultQAStatus, KindAdminSetDefaultChecksStatus:
		if !has {
			return incomplete(name, "expected a + or - suffix")
		}
		return Result{Admin: &AdminCommand{Kind: AdminKind(base), Enabled: enabled}}
	}

	switch AdminKind(name) {
	case KindAdminHelp:
		return Result{Admin: &AdminCommand{Kind: KindAdminHelp}}
	case KindAdminEnable:
		return Result{Admin: &AdminCommand{Kind: KindAdminEnable}}
	case KindAdminDisable:
		return Result{Admin: &AdminCommand{Kind: KindAdminDisable}}
	case KindAdminAddMergeRule:
		if len(args) != 3 {
			return incomplete(name, "expected <base> <head> <strategy>")
		}
		if !validStrategy(args[2]) {
			return unparseable(name, args[2])
		}
		return Result{Admin: &AdminCommand{Kind: KindAdminAddMergeRule, BaseBranch: args[0], HeadBranch: args[1], Strategy: args[2]}}
	case KindAdminSetDefaultNeededReviewers, KindAdminSetNeededReviewers:
		if len(args) != 1 {
			return incomplete(name, "expected a single integer")
		}
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return unparseable(name, args[0])
		}
		return Result{Admin: &AdminCommand{Kind: AdminKind(name), NeededReviewers: n}}
	case KindAdminSetDefaultMergeStrategy:
		if len(args) != 1 {
			return incomplete(name, "expected a single strategy name")
		}
		if !validStrategy(args[0]) {
			return unparseable(name, args[0])
		}
		return Result{Admin: &AdminCommand{Kind: KindAdminSetDefaultMergeStrategy, Strategy: args[0]}}
	case KindAdminSetDefaultPRTitleRegex:
		return Result{Admin: &AdminCommand{Kind: KindAdminSetDefaultPRTitleRegex, TitleRegex: strings.Join(args, " ")}}
	case KindAdminResetReviewers:
		return Result{Admin: &AdminCommand{Kind: KindAdminResetReviewers}}
	case KindAdminResetSummary:
		return Result{Admin: &AdminCommand{Kind: KindAdminResetSummary}}
	case KindAdminSync:
		return Result{Admin: &AdminCommand{Kind: KindAdminSync}}
	}

	return unknown(name)
}
