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

package cli

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
)

func run(t *testing.T, s store.Store, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(s)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRepositoryCreateGetList(t *testing.T) {
	s := memory.New()

	out, err := run(t, s, "", "repository", "create", "acme", "widgets", "--strategy", "squash")
	require.NoError(t, err)
	require.Contains(t, out, `"Owner": "acme"`)

	out, err = run(t, s, "", "repository", "get", "acme", "widgets")
	require.NoError(t, err)
	require.Contains(t, out, `"Name": "widgets"`)

	out, err = run(t, s, "", "repository", "list")
	require.NoError(t, err)
	require.Contains(t, out, "widgets")
}

func TestMergeRuleSetRejectsInvalidStrategy(t *testing.T) {
	s := memory.New()
	_, err := run(t, s, "", "merge-rule", "set", "1", "main", "*", "bogus")
	require.Error(t, err)
}

func TestMergeRuleSetAndList(t *testing.T) {
	s := memory.New()
	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	require.NoError(t, err)

	repoID := strconv.FormatUint(repo.ID, 10)
	_, err = run(t, s, "", "merge-rule", "set", repoID, "main", "*", "squash")
	require.NoError(t, err)

	out, err := run(t, s, "", "merge-rule", "list", repoID)
	require.NoError(t, err)
	require.Contains(t, out, "squash")
}

func TestExternalAccountCreateAndIssueToken(t *testing.T) {
	s := memory.New()
	_, err := run(t, s, "", "external-account", "create", "ci-system")
	require.NoError(t, err)

	out, err := run(t, s, "", "external-account", "issue-token", "ci-system")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := memory.New()
	_, err := src.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	require.NoError(t, err)

	out, err := run(t, src, "", "export")
	require.NoError(t, err)

	dst := memory.New()
	_, err = run(t, dst, out, "import")
	require.NoError(t, err)

	r, err := dst.GetRepositoryByName("acme", "widgets")
	require.NoError(t, err)
	require.Equal(t, "widgets", r.Name)
}
