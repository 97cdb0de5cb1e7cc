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

package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

func TestMatchesRequiresEveryCondition(t *testing.T) {
	rule := store.PullRequestRule{
		Conditions: []store.RuleCondition{
			{Kind: store.ConditionAuthor, Value: "dependabot"},
			{Kind: store.ConditionBaseBranch, Value: "main"},
		},
	}
	upstream := &github.PullRequest{
		User: github.User{Login: "dependabot"},
		Base: github.PullRequestBranch{Ref: "main"},
	}
	require.True(t, Matches(rule, upstream))

	upstream.Base.Ref = "release"
	require.False(t, Matches(rule, upstream))
}

func TestMatchesWildcardBranch(t *testing.T) {
	rule := store.PullRequestRule{
		Conditions: []store.RuleCondition{
			{Kind: store.ConditionHeadBranch, Value: "*"},
		},
	}
	upstream := &github.PullRequest{Head: github.PullRequestBranch{Ref: "feature/x"}}
	require.True(t, Matches(rule, upstream))
}

func TestApplySetsAutomergeAndNeededReviewers(t *testing.T) {
	rule := store.PullRequestRule{
		Actions: []store.RuleAction{
			{Kind: store.ActionSetAutomerge, BoolValue: true},
			{Kind: store.ActionSetNeededReviewers, NumberValue: 3},
		},
	}
	local := &store.PullRequest{}
	Apply(rule, local)

	require.NotNil(t, local.AutomergeEnabled)
	require.True(t, *local.AutomergeEnabled)
	require.NotNil(t, local.NeededReviewers)
	require.EqualValues(t, 3, *local.NeededReviewers)
}

func TestEvaluateAppliesOnlyMatchingRules(t *testing.T) {
	upstream := &github.PullRequest{
		User: github.User{Login: "dependabot"},
		Base: github.PullRequestBranch{Ref: "main"},
	}
	local := &store.PullRequest{}
	matchingRule := store.PullRequestRule{
		Conditions: []store.RuleCondition{{Kind: store.ConditionAuthor, Value: "dependabot"}},
		Actions:    []store.RuleAction{{Kind: store.ActionSetQAEnabled, BoolValue: false}},
	}
	nonMatchingRule := store.PullRequestRule{
		Conditions: []store.RuleCondition{{Kind: store.ConditionAuthor, Value: "someone-else"}},
		Actions:    []store.RuleAction{{Kind: store.ActionSetChecksEnabled, BoolValue: false}},
	}

	matched := Evaluate([]*store.PullRequestRule{&matchingRule, &nonMatchingRule}, upstream, local)
	require.Equal(t, 1, matched)
	require.Equal(t, store.QAStatusSkipped, local.QAStatus)
	require.Nil(t, local.ChecksEnabled)
}
