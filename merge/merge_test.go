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

package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/scberrors"
	"github.com/clarketm/scbot-engine/store"
)

func TestResolveStrategyOverrideWins(t *testing.T) {
	override := config.MergeStrategySquash
	repo := &store.Repository{DefaultStrategy: config.MergeStrategyMerge}
	pr := &store.PullRequest{StrategyOverride: &override}
	rules := []*store.MergeRule{{BaseBranch: "*", HeadBranch: "*", Strategy: config.MergeStrategyRebase}}

	require.Equal(t, config.MergeStrategySquash, ResolveStrategy(repo, pr, rules, "main", "feature"))
}

func TestResolveStrategyRuleWinsOverDefault(t *testing.T) {
	repo := &store.Repository{DefaultStrategy: config.MergeStrategyMerge}
	pr := &store.PullRequest{}
	rules := []*store.MergeRule{
		{BaseBranch: "main", HeadBranch: "*", Strategy: config.MergeStrategyRebase},
	}

	require.Equal(t, config.MergeStrategyRebase, ResolveStrategy(repo, pr, rules, "main", "feature"))
	require.Equal(t, config.MergeStrategyMerge, ResolveStrategy(repo, pr, rules, "release", "feature"))
}

func TestMergeBuildsCommitTitle(t *testing.T) {
	client := github.NewFakeHostClient()
	client.PullRequests[7] = &github.PullRequest{Number: 7, Title: "Add widget support"}

	err := Merge(client, "acme", "widgets", client.PullRequests[7], config.MergeStrategySquash)
	require.NoError(t, err)
	require.Equal(t, "Add widget support (#7)", client.Merged[7].CommitTitle)
	require.Equal(t, "squash", client.Merged[7].MergeMethod)
}

func TestMergeWrapsError(t *testing.T) {
	client := github.NewFakeHostClient()
	client.PullRequests[7] = &github.PullRequest{Number: 7, Title: "x"}
	client.MergeErr = errors.New("not mergeable")

	err := Merge(client, "acme", "widgets", client.PullRequests[7], config.MergeStrategyMerge)
	require.Error(t, err)
	var mergeErr *scberrors.MergeError
	require.ErrorAs(t, err, &mergeErr)
}
