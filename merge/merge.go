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

// Package merge resolves the merge strategy for a pull request and invokes
// it against the host client.
package merge

import (
	"fmt"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/scberrors"
	"github.com/clarketm/scbot-engine/store"
)

// ResolveStrategy picks the merge strategy for pr, in the order: the PR's
// own override, a matching MergeRule(base, head) on the repository
// (branches may be the wildcard "*"), else the repository default.
func ResolveStrategy(repo *store.Repository, pr *store.PullRequest, rules []*store.MergeRule, base, head string) config.MergeStrategy {
	if pr.StrategyOverride != nil {
		return *pr.StrategyOverride
	}
	for _, rule := range rules {
		if branchMatches(rule.BaseBranch, base) && branchMatches(rule.HeadBranch, head) {
			return rule.Strategy
		}
	}
	return repo.DefaultStrategy
}

func branchMatches(pattern, branch string) bool {
	return pattern == "*" || pattern == branch
}

// Merge invokes the host merge call with the resolved strategy and a
// commit title of the form "<title> (#<number>)". Errors are wrapped in
// scberrors.MergeError and surfaced unchanged otherwise.
func Merge(client github.HostClient, owner, name string, upstream *github.PullRequest, strategy config.MergeStrategy) error {
	title := fmt.Sprintf("%s (#%d)", upstream.Title, upstream.Number)
	details := github.MergeDetails{
		CommitTitle: title,
		MergeMethod: string(strategy),
	}
	if err := client.Merge(owner, name, upstream.Number, details); err != nil {
		return scberrors.NewMerge(fmt.Sprintf("merge of #%d failed", upstream.Number), err)
	}
	return nil
}
