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

// Package rules matches an upstream pull request against a repository's
// PullRequestRules and applies the actions of every rule that matches, the
// way config/tide.go's TideQuery composes several conjunctive conditions
// (labels, branches, author) into one predicate over a pull request. Unlike
// tide's queries, a rule here does not gate merging directly: it only
// mutates the local PullRequest record. Callers are expected to
// run the rule engine once and then queue a single status refresh -- the
// engine itself never triggers one.
package rules

import (
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

// Matches reports whether every condition of rule holds against pr.
func Matches(rule store.PullRequestRule, pr *github.PullRequest) bool {
	for _, cond := range rule.Conditions {
		if !matchesCondition(cond, pr) {
			return false
		}
	}
	return true
}

func matchesCondition(cond store.RuleCondition, pr *github.PullRequest) bool {
	switch cond.Kind {
	case store.ConditionAuthor:
		return pr.User.Login == cond.Value
	case store.ConditionBaseBranch:
		return branchMatches(cond.Value, pr.Base.Ref)
	case store.ConditionHeadBranch:
		return branchMatches(cond.Value, pr.Head.Ref)
	default:
		return false
	}
}

func branchMatches(pattern, branch string) bool {
	return pattern == "*" || pattern == branch
}

// Apply mutates local to reflect every action of rule. It never calls out
// to the store or host client; the caller persists local afterwards.
func Apply(rule store.PullRequestRule, local *store.PullRequest) {
	for _, action := range rule.Actions {
		applyAction(action, local)
	}
}

func applyAction(action store.RuleAction, local *store.PullRequest) {
	switch action.Kind {
	case store.ActionSetAutomerge:
		enabled := action.BoolValue
		local.AutomergeEnabled = &enabled
	case store.ActionSetQAEnabled:
		if action.BoolValue {
			local.QAStatus = store.QAStatusWaiting
		} else {
			local.QAStatus = store.QAStatusSkipped
		}
	case store.ActionSetChecksEnabled:
		enabled := action.BoolValue
		local.ChecksEnabled = &enabled
	case store.ActionSetNeededReviewers:
		n := action.NumberValue
		local.NeededReviewers = &n
	}
}

// Evaluate matches every rule against upstream and applies the actions of
// each match to local, in rule order. It returns the number of rules that
// matched; a non-zero count tells the caller that local changed and needs
// persisting.
func Evaluate(rules []*store.PullRequestRule, upstream *github.PullRequest, local *store.PullRequest) int {
	matched := 0
	for _, rule := range rules {
		if Matches(*rule, upstream) {
			Apply(*rule, local)
			matched++
		}
	}
	return matched
}
