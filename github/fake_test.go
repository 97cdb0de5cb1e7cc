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

package github

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeClientLabels(t *testing.T) {
	f := NewFakeHostClient()
	require.NoError(t, f.AddLabel("o", "r", 1, "wip"))
	require.NoError(t, f.AddLabel("o", "r", 1, "wip"))
	labels, err := f.ListIssueLabels("o", "r", 1)
	require.NoError(t, err)
	require.Len(t, labels, 1)

	require.NoError(t, f.RemoveLabel("o", "r", 1, "wip"))
	labels, err = f.ListIssueLabels("o", "r", 1)
	require.NoError(t, err)
	require.Empty(t, labels)
}

func TestFakeClientCommentLifecycle(t *testing.T) {
	f := NewFakeHostClient()
	ic, err := f.CreateComment("o", "r", 1, "hello")
	require.NoError(t, err)
	require.NotZero(t, ic.ID)

	exists, err := f.CommentExists("o", "r", ic.ID)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.UpdateComment("o", "r", ic.ID, "updated"))
	require.Equal(t, "updated", f.Comments[ic.ID].Body)

	exists, err = f.CommentExists("o", "r", 99999)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestFakeClientMerge(t *testing.T) {
	f := NewFakeHostClient()
	f.PullRequests[1] = &PullRequest{Number: 1}
	require.NoError(t, f.Merge("o", "r", 1, MergeDetails{CommitTitle: "t (#1)", MergeMethod: "merge"}))
	require.True(t, f.PullRequests[1].Merged)
	require.Equal(t, "merge", f.Merged[1].MergeMethod)
}

func TestHasLabelCaseInsensitive(t *testing.T) {
	require.True(t, HasLabel("WIP", []Label{{Name: "wip"}}))
	require.False(t, HasLabel("wip", []Label{{Name: "lgtm"}}))
	require.True(t, HasLabels([]string{"a", "b"}, []Label{{Name: "a"}, {Name: "b"}, {Name: "c"}}))
	require.False(t, HasLabels([]string{"a", "z"}, []Label{{Name: "a"}}))
}
