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

// Package cli builds the operator-facing command tree for direct CRUD on
// the store — repositories, pull requests, merge rules, pull-request
// rules, accounts, external accounts — plus export/import, the way
// verustcode/cmd/verustcode/main.go builds its cobra command tree over a
// running service's store.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/crypto"
	"github.com/clarketm/scbot-engine/store"
)

// NewRootCommand builds the "scbot" command tree over s.
func NewRootCommand(s store.Store) *cobra.Command {
	root := &cobra.Command{
		Use:   "scbot",
		Short: "Operate the pull request automation engine's store directly",
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newRepositoryCommand(s),
		newPullRequestCommand(s),
		newMergeRuleCommand(s),
		newPullRequestRuleCommand(s),
		newAccountCommand(s),
		newExternalAccountCommand(s),
		newExportCommand(s),
		newImportCommand(s),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRepositoryCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "repository", Short: "Manage repositories"}

	var (
		strategy      string
		reviewers     uint64
		titleRegex    string
		checksEnabled bool
		qaEnabled     bool
		automerge     bool
		manual        bool
	)
	create := &cobra.Command{
		Use:   "create OWNER NAME",
		Short: "Create (or fetch, if it already exists) a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := s.GetOrCreateRepository(args[0], args[1], store.RepositoryDefaults{
				DefaultStrategy:         strategy,
				DefaultNeededReviewers:  reviewers,
				DefaultPRTitleRegex:     titleRegex,
				DefaultChecksEnabled:    checksEnabled,
				DefaultQAEnabled:        qaEnabled,
				DefaultAutomergeEnabled: automerge,
				ManualInteraction:       manual,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	create.Flags().StringVar(&strategy, "strategy", string(config.MergeStrategyMerge), "default merge strategy")
	create.Flags().Uint64Var(&reviewers, "needed-reviewers", 2, "default needed reviewers")
	create.Flags().StringVar(&titleRegex, "title-regex", "", "default PR title regex")
	create.Flags().BoolVar(&checksEnabled, "checks-enabled", true, "default checks enabled")
	create.Flags().BoolVar(&qaEnabled, "qa-enabled", true, "default QA enabled")
	create.Flags().BoolVar(&automerge, "automerge", false, "default automerge enabled")
	create.Flags().BoolVar(&manual, "manual-interaction", false, "gate webhook sync behind manual-enable")

	get := &cobra.Command{
		Use:   "get OWNER NAME",
		Short: "Show a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := s.GetRepositoryByName(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := s.ListRepositories()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rs)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a repository by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			return s.DeleteRepository(id)
		},
	}

	cmd.AddCommand(create, get, list, del)
	return cmd
}

func newPullRequestCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "pull-request", Short: "Inspect tracked pull requests"}

	get := &cobra.Command{
		Use:   "get REPOSITORY_ID NUMBER",
		Short: "Show a pull request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid pull request number %q: %w", args[1], err)
			}
			pr, err := s.GetPullRequest(repoID, number)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pr)
		},
	}

	list := &cobra.Command{
		Use:   "list REPOSITORY_ID",
		Short: "List a repository's tracked pull requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			prs, err := s.ListPullRequests(repoID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), prs)
		},
	}

	cmd.AddCommand(get, list)
	return cmd
}

func newMergeRuleCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "merge-rule", Short: "Manage per-branch-pair merge strategy overrides"}

	set := &cobra.Command{
		Use:   "set REPOSITORY_ID BASE HEAD STRATEGY",
		Short: "Create or replace a merge rule. BASE/HEAD may be \"*\"",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			strategy, err := config.ParseMergeStrategy(args[3])
			if err != nil {
				return err
			}
			rule, err := s.SetMergeRule(store.MergeRule{RepositoryID: repoID, BaseBranch: args[1], HeadBranch: args[2], Strategy: strategy})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rule)
		},
	}

	list := &cobra.Command{
		Use:   "list REPOSITORY_ID",
		Short: "List a repository's merge rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			rules, err := s.ListMergeRules(repoID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rules)
		},
	}

	del := &cobra.Command{
		Use:   "delete REPOSITORY_ID BASE HEAD",
		Short: "Delete a merge rule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			return s.DeleteMergeRule(repoID, args[1], args[2])
		},
	}

	cmd.AddCommand(set, list, del)
	return cmd
}

func newPullRequestRuleCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "pr-rule", Short: "Manage conditional pull-request rules"}

	list := &cobra.Command{
		Use:   "list REPOSITORY_ID",
		Short: "List a repository's pull-request rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			rules, err := s.ListPullRequestRules(repoID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rules)
		},
	}

	del := &cobra.Command{
		Use:   "delete REPOSITORY_ID NAME",
		Short: "Delete a pull-request rule by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[0], err)
			}
			return s.DeletePullRequestRule(repoID, args[1])
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func newAccountCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage human admin accounts"}

	var isAdmin bool
	set := &cobra.Command{
		Use:   "set USERNAME",
		Short: "Create or update an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.UpsertAccount(store.Account{Username: args[0], IsAdmin: isAdmin})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
	set.Flags().BoolVar(&isAdmin, "admin", false, "grant admin-command rights")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := s.ListAccounts()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), accounts)
		},
	}

	del := &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.DeleteAccount(args[0])
		},
	}

	cmd.AddCommand(set, list, del)
	return cmd
}

func newExternalAccountCommand(s store.Store) *cobra.Command {
	cmd := &cobra.Command{Use: "external-account", Short: "Manage service accounts for the external QA surface"}

	create := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Generate a keypair and register a new external account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publicPEM, privatePEM, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			a, err := s.UpsertExternalAccount(store.ExternalAccount{
				Username:      args[0],
				PublicKeyPEM:  publicPEM,
				PrivateKeyPEM: privatePEM,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}

	issueToken := &cobra.Command{
		Use:   "issue-token USERNAME",
		Short: "Mint a bearer token for an external account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.GetExternalAccount(args[0])
			if err != nil {
				return err
			}
			key, err := crypto.ParsePrivateKey(a.PrivateKeyPEM)
			if err != nil {
				return err
			}
			token, err := crypto.IssueToken(a.Username, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	grant := &cobra.Command{
		Use:   "grant USERNAME REPOSITORY_ID",
		Short: "Grant an external account the right to set QA status on a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[1], err)
			}
			return s.AddExternalAccountRight(args[0], repoID)
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke USERNAME REPOSITORY_ID",
		Short: "Revoke an external account's right on a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid repository id %q: %w", args[1], err)
			}
			return s.RemoveExternalAccountRight(args[0], repoID)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List external accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := s.ListExternalAccounts()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), accounts)
		},
	}

	del := &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete an external account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.DeleteExternalAccount(args[0])
		},
	}

	cmd.AddCommand(create, issueToken, grant, revoke, list, del)
	return cmd
}

func newExportCommand(s store.Store) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the entire store as a single JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := s.Export()
			if err != nil {
				return err
			}
			if path == "" {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return printJSON(f, doc)
		},
	}
	cmd.Flags().StringVar(&path, "output", "", "write to this file instead of stdout")
	return cmd
}

func newImportCommand(s store.Store) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON export document, updating existing rows by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var doc store.ExportDocument
			if err := json.NewDecoder(r).Decode(&doc); err != nil {
				return fmt.Errorf("decoding import document: %w", err)
			}
			return s.Import(doc)
		},
	}
	cmd.Flags().StringVar(&path, "input", "", "read from this file instead of stdin")
	return cmd
}
