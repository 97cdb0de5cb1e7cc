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
	"testing"

	"github.com/stretchr/testify/require"
)

const handle = "@bot"

func TestParseSimpleUserCommands(t *testing.T) {
	results := Parse("@bot qa+\n@bot qa?\n@bot ping", handle)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].User)
	require.Equal(t, KindQA, results[0].User.Kind)
	require.True(t, results[0].User.Enabled)

	require.NotNil(t, results[1].User)
	require.Equal(t, KindQAQuery, results[1].User.Kind)

	require.NotNil(t, results[2].User)
	require.Equal(t, KindPing, results[2].User.Kind)
}

func TestParseIgnoresNonCommandLines(t *testing.T) {
	results := Parse("just a regular comment\nwith no mentions", handle)
	require.Empty(t, results)
}

func TestParseReviewersCommand(t *testing.T) {
	results := Parse("@bot r+ alice bob", handle)
	require.Len(t, results, 1)
	require.Equal(t, KindReviewersAdd, results[0].User.Kind)
	require.Equal(t, []string{"alice", "bob"}, results[0].User.Users)
}

func TestParseReviewersCommandMissingArgsIsIncomplete(t *testing.T) {
	results := Parse("@bot r+", handle)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Error)
	require.Equal(t, ErrorIncomplete, results[0].Error.Kind)
}

func TestParseStrategyCommand(t *testing.T) {
	results := Parse("@bot strategy+ squash\n@bot strategy-", handle)
	require.Len(t, results, 2)
	require.Equal(t, KindStrategySet, results[0].User.Kind)
	require.Equal(t, "squash", results[0].User.Strategy)
	require.Equal(t, KindStrategyUnset, results[1].User.Kind)
}

func TestParseStrategyCommandUnparseable(t *testing.T) {
	results := Parse("@bot strategy+ not-a-strategy", handle)
	require.NotNil(t, results[0].Error)
	require.Equal(t, ErrorUnparseable, results[0].Error.Kind)
}

func TestParseUnknownCommand(t *testing.T) {
	results := Parse("@bot frobnicate", handle)
	require.NotNil(t, results[0].Error)
	require.Equal(t, ErrorUnknown, results[0].Error.Kind)
}

func TestParseLockWithReason(t *testing.T) {
	results := Parse("@bot lock+ waiting on design review", handle)
	require.Equal(t, KindLock, results[0].User.Kind)
	require.True(t, results[0].User.Enabled)
	require.Equal(t, "waiting on design review", results[0].User.Reason)
}

func TestParseNoqaWithoutPolarityIsIncomplete(t *testing.T) {
	results := Parse("@bot noqa", handle)
	require.NotNil(t, results[0].Error)
	require.Equal(t, ErrorIncomplete, results[0].Error.Kind)
}

func TestParseAdminCommands(t *testing.T) {
	results := Parse("@bot admin-enable\n@bot admin-add-merge-rule main * squash\n@bot admin-set-default-automerge+", handle)
	require.Len(t, results, 3)
	require.Equal(t, KindAdminEnable, results[0].Admin.Kind)

	require.Equal(t, KindAdminAddMergeRule, results[1].Admin.Kind)
	require.Equal(t, "main", results[1].Admin.BaseBranch)
	require.Equal(t, "*", results[1].Admin.HeadBranch)
	require.Equal(t, "squash", results[1].Admin.Strategy)

	require.Equal(t, KindAdminSetDefaultAutomerge, results[2].Admin.Kind)
	require.True(t, results[2].Admin.Enabled)
}

func TestParseAdminSetNeededReviewers(t *testing.T) {
	results := Parse("@bot admin-set-needed-reviewers 3", handle)
	require.Equal(t, KindAdminSetNeededReviewers, results[0].Admin.Kind)
	require.EqualValues(t, 3, results[0].Admin.NeededReviewers)
}

func TestParseAdminSetNeededReviewersUnparseable(t *testing.T) {
	results := Parse("@bot admin-set-needed-reviewers three", handle)
	require.NotNil(t, results[0].Error)
	require.Equal(t, ErrorUnparseable, results[0].Error.Kind)
}

func TestParseMultipleLinesIndependent(t *testing.T) {
	results := Parse("@bot qa+\n@bot bogus\n@bot ping", handle)
	require.Len(t, results, 3)
	require.NotNil(t, results[0].User)
	require.NotNil(t, results[1].Error)
	require.NotNil(t, results[2].User)
}
