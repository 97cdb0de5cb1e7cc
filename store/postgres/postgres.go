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

// Package postgres implements store.Store against a PostgreSQL database via
// database/sql, lib/pq and jmoiron/sqlx, building statements with
// Masterminds/squirrel the way pr-reviewer-service's repository layer does.
package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/scberrors"
	"github.com/clarketm/scbot-engine/store"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and verifies the connection is alive.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Schema is the DDL for every table this store depends on. Callers run it
// with their own migration tool of choice; scbot-engine does not vendor one.
const Schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id BIGSERIAL PRIMARY KEY,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	default_strategy TEXT NOT NULL DEFAULT 'merge',
	default_needed_reviewers BIGINT NOT NULL DEFAULT 2,
	default_pr_title_regex TEXT NOT NULL DEFAULT '',
	default_checks_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	default_qa_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	default_automerge_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	manual_interaction BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (owner, name)
);

CREATE TABLE IF NOT EXISTS pull_requests (
	id BIGSERIAL PRIMARY KEY,
	repository_id BIGINT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	number INT NOT NULL,
	needed_reviewers BIGINT,
	checks_enabled BOOLEAN,
	qa_status TEXT NOT NULL DEFAULT 'waiting',
	automerge_enabled BOOLEAN,
	strategy_override TEXT,
	locked BOOLEAN NOT NULL DEFAULT FALSE,
	lock_reason TEXT NOT NULL DEFAULT '',
	status_comment_id INT NOT NULL DEFAULT 0,
	wip BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (repository_id, number)
);

CREATE TABLE IF NOT EXISTS merge_rules (
	id BIGSERIAL PRIMARY KEY,
	repository_id BIGINT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	base_branch TEXT NOT NULL,
	head_branch TEXT NOT NULL,
	strategy TEXT NOT NULL,
	UNIQUE (repository_id, base_branch, head_branch)
);

CREATE TABLE IF NOT EXISTS pull_request_rules (
	id BIGSERIAL PRIMARY KEY,
	repository_id BIGINT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	conditions JSONB NOT NULL DEFAULT '[]',
	actions JSONB NOT NULL DEFAULT '[]',
	UNIQUE (repository_id, name)
);

CREATE TABLE IF NOT EXISTS accounts (
	username TEXT PRIMARY KEY,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS external_accounts (
	username TEXT PRIMARY KEY,
	public_key_pem TEXT NOT NULL DEFAULT '',
	private_key_pem TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS external_account_rights (
	username TEXT NOT NULL REFERENCES external_accounts(username) ON DELETE CASCADE,
	repository_id BIGINT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	PRIMARY KEY (username, repository_id)
);

CREATE TABLE IF NOT EXISTS required_reviewers (
	pull_request_id BIGINT NOT NULL REFERENCES pull_requests(id) ON DELETE CASCADE,
	username TEXT NOT NULL,
	PRIMARY KEY (pull_request_id, username)
);
`

type repositoryRow struct {
	ID                      uint64 `db:"id"`
	Owner                   string `db:"owner"`
	Name                    string `db:"name"`
	DefaultStrategy         string `db:"default_strategy"`
	DefaultNeededReviewers  uint64 `db:"default_needed_reviewers"`
	DefaultPRTitleRegex     string `db:"default_pr_title_regex"`
	DefaultChecksEnabled    bool   `db:"default_checks_enabled"`
	DefaultQAEnabled        bool   `db:"default_qa_enabled"`
	DefaultAutomergeEnabled bool   `db:"default_automerge_enabled"`
	ManualInteraction       bool   `db:"manual_interaction"`
}

func (r repositoryRow) toDomain() *store.Repository {
	return &store.Repository{
		ID:                      r.ID,
		Owner:                   r.Owner,
		Name:                    r.Name,
		DefaultStrategy:         config.MergeStrategy(r.DefaultStrategy),
		DefaultNeededReviewers:  r.DefaultNeededReviewers,
		DefaultPRTitleRegex:     r.DefaultPRTitleRegex,
		DefaultChecksEnabled:    r.DefaultChecksEnabled,
		DefaultQAEnabled:        r.DefaultQAEnabled,
		DefaultAutomergeEnabled: r.DefaultAutomergeEnabled,
		ManualInteraction:       r.ManualInteraction,
	}
}

func (s *Store) GetOrCreateRepository(owner, name string, defaults store.RepositoryDefaults) (*store.Repository, error) {
	if r, err := s.GetRepositoryByName(owner, name); err == nil {
		return r, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	query, args, err := psql.Insert("repositories").
		Columns("owner", "name", "default_strategy", "default_needed_reviewers", "default_pr_title_regex",
			"default_checks_enabled", "default_qa_enabled", "default_automerge_enabled", "manual_interaction").
		Values(owner, name, defaults.DefaultStrategy, defaults.DefaultNeededReviewers, defaults.DefaultPRTitleRegex,
			defaults.DefaultChecksEnabled, defaults.DefaultQAEnabled, defaults.DefaultAutomergeEnabled, defaults.ManualInteraction).
		Suffix("ON CONFLICT (owner, name) DO UPDATE SET owner = EXCLUDED.owner RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var id uint64
	if err := s.db.QueryRowx(query, args...).Scan(&id); err != nil {
		return nil, err
	}
	return s.GetRepository(id)
}

func (s *Store) GetRepositoryByName(owner, name string) (*store.Repository, error) {
	query, args, err := psql.Select("*").From("repositories").Where(sq.Eq{"owner": owner, "name": name}).ToSql()
	if err != nil {
		return nil, err
	}
	var row repositoryRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("repository", owner+"/"+name)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetRepository(id uint64) (*store.Repository, error) {
	query, args, err := psql.Select("*").From("repositories").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var row repositoryRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("repository", idString(id))
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateRepository(r *store.Repository) error {
	query, args, err := psql.Update("repositories").
		Set("default_strategy", string(r.DefaultStrategy)).
		Set("default_needed_reviewers", r.DefaultNeededReviewers).
		Set("default_pr_title_regex", r.DefaultPRTitleRegex).
		Set("default_checks_enabled", r.DefaultChecksEnabled).
		Set("default_qa_enabled", r.DefaultQAEnabled).
		Set("default_automerge_enabled", r.DefaultAutomergeEnabled).
		Set("manual_interaction", r.ManualInteraction).
		Where(sq.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	return checkAffected(res, "repository", idString(r.ID))
}

func (s *Store) ListRepositories() ([]*store.Repository, error) {
	var rows []repositoryRow
	if err := s.db.Select(&rows, "SELECT * FROM repositories ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]*store.Repository, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteRepository(id uint64) error {
	res, err := s.db.Exec("DELETE FROM repositories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(res, "repository", idString(id))
}

type pullRequestRow struct {
	ID               uint64  `db:"id"`
	RepositoryID     uint64  `db:"repository_id"`
	Number           int     `db:"number"`
	NeededReviewers  *uint64 `db:"needed_reviewers"`
	ChecksEnabled    *bool   `db:"checks_enabled"`
	QAStatus         string  `db:"qa_status"`
	AutomergeEnabled *bool   `db:"automerge_enabled"`
	StrategyOverride *string `db:"strategy_override"`
	Locked           bool    `db:"locked"`
	LockReason       string  `db:"lock_reason"`
	StatusCommentID  int     `db:"status_comment_id"`
	WIP              bool    `db:"wip"`
}

func (r pullRequestRow) toDomain() *store.PullRequest {
	pr := &store.PullRequest{
		ID:               r.ID,
		RepositoryID:     r.RepositoryID,
		Number:           r.Number,
		NeededReviewers:  r.NeededReviewers,
		ChecksEnabled:    r.ChecksEnabled,
		QAStatus:         store.QAStatus(r.QAStatus),
		AutomergeEnabled: r.AutomergeEnabled,
		Locked:           r.Locked,
		LockReason:       r.LockReason,
		StatusCommentID:  r.StatusCommentID,
		WIP:              r.WIP,
	}
	if r.StrategyOverride != nil {
		strat := config.MergeStrategy(*r.StrategyOverride)
		pr.StrategyOverride = &strat
	}
	return pr
}

func (s *Store) GetOrCreatePullRequest(repositoryID uint64, number int, defaults store.PullRequestDefaults) (*store.PullRequest, error) {
	if pr, err := s.GetPullRequest(repositoryID, number); err == nil {
		return pr, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	query, args, err := psql.Insert("pull_requests").
		Columns("repository_id", "number", "qa_status", "wip").
		Values(repositoryID, number, string(defaults.QAStatus), defaults.WIP).
		Suffix("ON CONFLICT (repository_id, number) DO UPDATE SET number = EXCLUDED.number RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var id uint64
	if err := s.db.QueryRowx(query, args...).Scan(&id); err != nil {
		return nil, err
	}
	return s.GetPullRequestByID(id)
}

func (s *Store) GetPullRequest(repositoryID uint64, number int) (*store.PullRequest, error) {
	query, args, err := psql.Select("*").From("pull_requests").Where(sq.Eq{"repository_id": repositoryID, "number": number}).ToSql()
	if err != nil {
		return nil, err
	}
	var row pullRequestRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("pull_request", prKey(repositoryID, number))
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetPullRequestByID(id uint64) (*store.PullRequest, error) {
	query, args, err := psql.Select("*").From("pull_requests").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var row pullRequestRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("pull_request", idString(id))
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) UpdatePullRequest(pr *store.PullRequest) error {
	var strategyOverride *string
	if pr.StrategyOverride != nil {
		v := string(*pr.StrategyOverride)
		strategyOverride = &v
	}
	query, args, err := psql.Update("pull_requests").
		Set("needed_reviewers", pr.NeededReviewers).
		Set("checks_enabled", pr.ChecksEnabled).
		Set("qa_status", string(pr.QAStatus)).
		Set("automerge_enabled", pr.AutomergeEnabled).
		Set("strategy_override", strategyOverride).
		Set("locked", pr.Locked).
		Set("lock_reason", pr.LockReason).
		Set("status_comment_id", pr.StatusCommentID).
		Set("wip", pr.WIP).
		Where(sq.Eq{"id": pr.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	return checkAffected(res, "pull_request", idString(pr.ID))
}

func (s *Store) ListPullRequests(repositoryID uint64) ([]*store.PullRequest, error) {
	var rows []pullRequestRow
	query, args, err := psql.Select("*").From("pull_requests").Where(sq.Eq{"repository_id": repositoryID}).OrderBy("number").ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*store.PullRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

type mergeRuleRow struct {
	ID           uint64 `db:"id"`
	RepositoryID uint64 `db:"repository_id"`
	BaseBranch   string `db:"base_branch"`
	HeadBranch   string `db:"head_branch"`
	Strategy     string `db:"strategy"`
}

func (r mergeRuleRow) toDomain() store.MergeRule {
	return store.MergeRule{ID: r.ID, RepositoryID: r.RepositoryID, BaseBranch: r.BaseBranch, HeadBranch: r.HeadBranch, Strategy: config.MergeStrategy(r.Strategy)}
}

func (s *Store) GetMergeRule(repositoryID uint64, base, head string) (*store.MergeRule, error) {
	query, args, err := psql.Select("*").From("merge_rules").
		Where(sq.Eq{"repository_id": repositoryID, "base_branch": base, "head_branch": head}).ToSql()
	if err != nil {
		return nil, err
	}
	var row mergeRuleRow
	if err := s.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("merge_rule", base+"/"+head)
		}
		return nil, err
	}
	rule := row.toDomain()
	return &rule, nil
}

func (s *Store) SetMergeRule(rule store.MergeRule) (*store.MergeRule, error) {
	query, args, err := psql.Insert("merge_rules").
		Columns("repository_id", "base_branch", "head_branch", "strategy").
		Values(rule.RepositoryID, rule.BaseBranch, rule.HeadBranch, string(rule.Strategy)).
		Suffix("ON CONFLICT (repository_id, base_branch, head_branch) DO UPDATE SET strategy = EXCLUDED.strategy RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var id uint64
	if err := s.db.QueryRowx(query, args...).Scan(&id); err != nil {
		return nil, err
	}
	rule.ID = id
	return &rule, nil
}

func (s *Store) ListMergeRules(repositoryID uint64) ([]*store.MergeRule, error) {
	var rows []mergeRuleRow
	query, args, err := psql.Select("*").From("merge_rules").Where(sq.Eq{"repository_id": repositoryID}).ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*store.MergeRule, 0, len(rows))
	for _, r := range rows {
		rule := r.toDomain()
		out = append(out, &rule)
	}
	return out, nil
}

func (s *Store) DeleteMergeRule(repositoryID uint64, base, head string) error {
	res, err := s.db.Exec("DELETE FROM merge_rules WHERE repository_id = $1 AND base_branch = $2 AND head_branch = $3", repositoryID, base, head)
	if err != nil {
		return err
	}
	return checkAffected(res, "merge_rule", base+"/"+head)
}

type pullRequestRuleRow struct {
	ID           uint64 `db:"id"`
	RepositoryID uint64 `db:"repository_id"`
	Name         string `db:"name"`
	Conditions   []byte `db:"conditions"`
	Actions      []byte `db:"actions"`
}

func (r pullRequestRuleRow) toDomain() (store.PullRequestRule, error) {
	rule := store.PullRequestRule{ID: r.ID, RepositoryID: r.RepositoryID, Name: r.Name}
	if err := json.Unmarshal(r.Conditions, &rule.Conditions); err != nil {
		return rule, err
	}
	if err := json.Unmarshal(r.Actions, &rule.Actions); err != nil {
		return rule, err
	}
	return rule, nil
}

func (s *Store) CreatePullRequestRule(rule store.PullRequestRule) (*store.PullRequestRule, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, err
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Insert("pull_request_rules").
		Columns("repository_id", "name", "conditions", "actions").
		Values(rule.RepositoryID, rule.Name, conditions, actions).
		Suffix("ON CONFLICT (repository_id, name) DO UPDATE SET conditions = EXCLUDED.conditions, actions = EXCLUDED.actions RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var id uint64
	if err := s.db.QueryRowx(query, args...).Scan(&id); err != nil {
		return nil, err
	}
	rule.ID = id
	return &rule, nil
}

func (s *Store) ListPullRequestRules(repositoryID uint64) ([]*store.PullRequestRule, error) {
	var rows []pullRequestRuleRow
	query, args, err := psql.Select("*").From("pull_request_rules").Where(sq.Eq{"repository_id": repositoryID}).ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*store.PullRequestRule, 0, len(rows))
	for _, r := range rows {
		rule, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, &rule)
	}
	return out, nil
}

func (s *Store) DeletePullRequestRule(repositoryID uint64, name string) error {
	res, err := s.db.Exec("DELETE FROM pull_request_rules WHERE repository_id = $1 AND name = $2", repositoryID, name)
	if err != nil {
		return err
	}
	return checkAffected(res, "pull_request_rule", name)
}

func (s *Store) AddRequiredReviewer(pullRequestID uint64, username string) error {
	_, err := s.db.Exec(`INSERT INTO required_reviewers (pull_request_id, username) VALUES ($1, $2)
		ON CONFLICT (pull_request_id, username) DO NOTHING`, pullRequestID, username)
	return err
}

func (s *Store) RemoveRequiredReviewer(pullRequestID uint64, username string) error {
	_, err := s.db.Exec("DELETE FROM required_reviewers WHERE pull_request_id = $1 AND username = $2", pullRequestID, username)
	return err
}

func (s *Store) ListRequiredReviewers(pullRequestID uint64) ([]string, error) {
	var out []string
	err := s.db.Select(&out, "SELECT username FROM required_reviewers WHERE pull_request_id = $1 ORDER BY username", pullRequestID)
	return out, err
}

type accountRow struct {
	Username string `db:"username"`
	IsAdmin  bool   `db:"is_admin"`
}

func (s *Store) GetAccount(username string) (*store.Account, error) {
	var row accountRow
	if err := s.db.Get(&row, "SELECT * FROM accounts WHERE username = $1", username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("account", username)
		}
		return nil, err
	}
	return &store.Account{Username: row.Username, IsAdmin: row.IsAdmin}, nil
}

func (s *Store) UpsertAccount(a store.Account) (*store.Account, error) {
	_, err := s.db.Exec(`INSERT INTO accounts (username, is_admin) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET is_admin = EXCLUDED.is_admin`, a.Username, a.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAccounts() ([]*store.Account, error) {
	var rows []accountRow
	if err := s.db.Select(&rows, "SELECT * FROM accounts ORDER BY username"); err != nil {
		return nil, err
	}
	out := make([]*store.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, &store.Account{Username: r.Username, IsAdmin: r.IsAdmin})
	}
	return out, nil
}

func (s *Store) DeleteAccount(username string) error {
	res, err := s.db.Exec("DELETE FROM accounts WHERE username = $1", username)
	if err != nil {
		return err
	}
	return checkAffected(res, "account", username)
}

type externalAccountRow struct {
	Username      string `db:"username"`
	PublicKeyPEM  string `db:"public_key_pem"`
	PrivateKeyPEM string `db:"private_key_pem"`
}

func (s *Store) GetExternalAccount(username string) (*store.ExternalAccount, error) {
	var row externalAccountRow
	if err := s.db.Get(&row, "SELECT * FROM external_accounts WHERE username = $1", username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scberrors.NewNotFound("external_account", username)
		}
		return nil, err
	}
	return &store.ExternalAccount{Username: row.Username, PublicKeyPEM: row.PublicKeyPEM, PrivateKeyPEM: row.PrivateKeyPEM}, nil
}

func (s *Store) UpsertExternalAccount(a store.ExternalAccount) (*store.ExternalAccount, error) {
	_, err := s.db.Exec(`INSERT INTO external_accounts (username, public_key_pem, private_key_pem) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET public_key_pem = EXCLUDED.public_key_pem, private_key_pem = EXCLUDED.private_key_pem`,
		a.Username, a.PublicKeyPEM, a.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListExternalAccounts() ([]*store.ExternalAccount, error) {
	var rows []externalAccountRow
	if err := s.db.Select(&rows, "SELECT * FROM external_accounts ORDER BY username"); err != nil {
		return nil, err
	}
	out := make([]*store.ExternalAccount, 0, len(rows))
	for _, r := range rows {
		out = append(out, &store.ExternalAccount{Username: r.Username, PublicKeyPEM: r.PublicKeyPEM, PrivateKeyPEM: r.PrivateKeyPEM})
	}
	return out, nil
}

func (s *Store) DeleteExternalAccount(username string) error {
	res, err := s.db.Exec("DELETE FROM external_accounts WHERE username = $1", username)
	if err != nil {
		return err
	}
	return checkAffected(res, "external_account", username)
}

func (s *Store) AddExternalAccountRight(username string, repositoryID uint64) error {
	_, err := s.db.Exec(`INSERT INTO external_account_rights (username, repository_id) VALUES ($1, $2)
		ON CONFLICT (username, repository_id) DO NOTHING`, username, repositoryID)
	return err
}

func (s *Store) RemoveExternalAccountRight(username string, repositoryID uint64) error {
	_, err := s.db.Exec("DELETE FROM external_account_rights WHERE username = $1 AND repository_id = $2", username, repositoryID)
	return err
}

func (s *Store) HasExternalAccountRight(username string, repositoryID uint64) (bool, error) {
	var exists bool
	err := s.db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM external_account_rights WHERE username = $1 AND repository_id = $2)", username, repositoryID)
	return exists, err
}

func (s *Store) ListExternalAccountRights(username string) ([]uint64, error) {
	var out []uint64
	err := s.db.Select(&out, "SELECT repository_id FROM external_account_rights WHERE username = $1 ORDER BY repository_id", username)
	return out, err
}

func (s *Store) Export() (*store.ExportDocument, error) {
	doc := &store.ExportDocument{}

	repos, err := s.ListRepositories()
	if err != nil {
		return nil, err
	}
	for _, r := range repos {
		doc.Repositories = append(doc.Repositories, *r)

		prs, err := s.ListPullRequests(r.ID)
		if err != nil {
			return nil, err
		}
		for _, pr := range prs {
			doc.PullRequests = append(doc.PullRequests, *pr)
			reviewers, err := s.ListRequiredReviewers(pr.ID)
			if err != nil {
				return nil, err
			}
			for _, u := range reviewers {
				doc.RequiredReviewers = append(doc.RequiredReviewers, store.RequiredReviewer{PullRequestID: pr.ID, Username: u})
			}
		}

		rules, err := s.ListMergeRules(r.ID)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			doc.MergeRules = append(doc.MergeRules, *rule)
		}

		prRules, err := s.ListPullRequestRules(r.ID)
		if err != nil {
			return nil, err
		}
		for _, rule := range prRules {
			doc.PullRequestRules = append(doc.PullRequestRules, *rule)
		}
	}

	accounts, err := s.ListAccounts()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		doc.Accounts = append(doc.Accounts, *a)
	}

	externalAccounts, err := s.ListExternalAccounts()
	if err != nil {
		return nil, err
	}
	for _, a := range externalAccounts {
		doc.ExternalAccounts = append(doc.ExternalAccounts, *a)
		rights, err := s.ListExternalAccountRights(a.Username)
		if err != nil {
			return nil, err
		}
		for _, repoID := range rights {
			doc.ExternalAccountRights = append(doc.ExternalAccountRights, store.ExternalAccountRight{Username: a.Username, RepositoryID: repoID})
		}
	}

	return doc, nil
}

func (s *Store) Import(doc store.ExportDocument) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range doc.Repositories {
		if _, err := tx.Exec(`INSERT INTO repositories (id, owner, name, default_strategy, default_needed_reviewers,
				default_pr_title_regex, default_checks_enabled, default_qa_enabled, default_automerge_enabled, manual_interaction)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO UPDATE SET owner = EXCLUDED.owner, name = EXCLUDED.name,
				default_strategy = EXCLUDED.default_strategy, default_needed_reviewers = EXCLUDED.default_needed_reviewers,
				default_pr_title_regex = EXCLUDED.default_pr_title_regex, default_checks_enabled = EXCLUDED.default_checks_enabled,
				default_qa_enabled = EXCLUDED.default_qa_enabled, default_automerge_enabled = EXCLUDED.default_automerge_enabled,
				manual_interaction = EXCLUDED.manual_interaction`,
			r.ID, r.Owner, r.Name, string(r.DefaultStrategy), r.DefaultNeededReviewers, r.DefaultPRTitleRegex,
			r.DefaultChecksEnabled, r.DefaultQAEnabled, r.DefaultAutomergeEnabled, r.ManualInteraction); err != nil {
			return err
		}
	}

	for _, pr := range doc.PullRequests {
		var strategyOverride *string
		if pr.StrategyOverride != nil {
			v := string(*pr.StrategyOverride)
			strategyOverride = &v
		}
		if _, err := tx.Exec(`INSERT INTO pull_requests (id, repository_id, number, needed_reviewers, checks_enabled,
				qa_status, automerge_enabled, strategy_override, locked, lock_reason, status_comment_id, wip)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO UPDATE SET needed_reviewers = EXCLUDED.needed_reviewers, checks_enabled = EXCLUDED.checks_enabled,
				qa_status = EXCLUDED.qa_status, automerge_enabled = EXCLUDED.automerge_enabled,
				strategy_override = EXCLUDED.strategy_override, locked = EXCLUDED.locked, lock_reason = EXCLUDED.lock_reason,
				status_comment_id = EXCLUDED.status_comment_id, wip = EXCLUDED.wip`,
			pr.ID, pr.RepositoryID, pr.Number, pr.NeededReviewers, pr.ChecksEnabled, string(pr.QAStatus),
			pr.AutomergeEnabled, strategyOverride, pr.Locked, pr.LockReason, pr.StatusCommentID, pr.WIP); err != nil {
			return err
		}
	}

	for _, rule := range doc.MergeRules {
		if _, err := tx.Exec(`INSERT INTO merge_rules (id, repository_id, base_branch, head_branch, strategy)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO UPDATE SET strategy = EXCLUDED.strategy`,
			rule.ID, rule.RepositoryID, rule.BaseBranch, rule.HeadBranch, string(rule.Strategy)); err != nil {
			return err
		}
	}

	for _, rule := range doc.PullRequestRules {
		conditions, err := json.Marshal(rule.Conditions)
		if err != nil {
			return err
		}
		actions, err := json.Marshal(rule.Actions)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO pull_request_rules (id, repository_id, name, conditions, actions)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO UPDATE SET conditions = EXCLUDED.conditions, actions = EXCLUDED.actions`,
			rule.ID, rule.RepositoryID, rule.Name, conditions, actions); err != nil {
			return err
		}
	}

	for _, a := range doc.Accounts {
		if _, err := tx.Exec(`INSERT INTO accounts (username, is_admin) VALUES ($1, $2)
			ON CONFLICT (username) DO UPDATE SET is_admin = EXCLUDED.is_admin`, a.Username, a.IsAdmin); err != nil {
			return err
		}
	}

	for _, a := range doc.ExternalAccounts {
		if _, err := tx.Exec(`INSERT INTO external_accounts (username, public_key_pem, private_key_pem) VALUES ($1, $2, $3)
			ON CONFLICT (username) DO UPDATE SET public_key_pem = EXCLUDED.public_key_pem, private_key_pem = EXCLUDED.private_key_pem`,
			a.Username, a.PublicKeyPEM, a.PrivateKeyPEM); err != nil {
			return err
		}
	}

	for _, right := range doc.ExternalAccountRights {
		if _, err := tx.Exec(`INSERT INTO external_account_rights (username, repository_id) VALUES ($1, $2)
			ON CONFLICT (username, repository_id) DO NOTHING`, right.Username, right.RepositoryID); err != nil {
			return err
		}
	}

	for _, rr := range doc.RequiredReviewers {
		if _, err := tx.Exec(`INSERT INTO required_reviewers (pull_request_id, username) VALUES ($1, $2)
			ON CONFLICT (pull_request_id, username) DO NOTHING`, rr.PullRequestID, rr.Username); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

var _ store.Store = (*Store)(nil)

func checkAffected(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scberrors.NewNotFound(kind, key)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *scberrors.NotFoundError
	return errors.As(err, &nf)
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func prKey(repositoryID uint64, number int) string {
	return idString(repositoryID) + "#" + strconv.Itoa(number)
}
