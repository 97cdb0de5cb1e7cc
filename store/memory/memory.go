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

// Package memory implements store.Store entirely in process memory, the
// way github.FakeClient stands in for a real host client: useful for tests
// and for a single-replica deployment with nothing to persist across
// restarts.
package memory

import (
	"sort"
	"sync"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/scberrors"
	"github.com/clarketm/scbot-engine/store"
)

// Store is an in-memory, mutex-guarded store.Store.
type Store struct {
	mu sync.Mutex

	repositories map[uint64]*store.Repository
	repoByName   map[string]uint64

	pullRequests  map[uint64]*store.PullRequest
	prByRepoNum   map[uint64]map[int]uint64
	nextPRID      uint64

	mergeRules map[uint64][]store.MergeRule
	nextRuleID uint64

	prRules map[uint64][]store.PullRequestRule
	nextPRRuleID uint64

	requiredReviewers map[uint64]map[string]bool

	accounts map[string]*store.Account

	externalAccounts map[string]*store.ExternalAccount
	externalRights   map[string]map[uint64]bool

	nextRepoID uint64
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		repositories:      map[uint64]*store.Repository{},
		repoByName:        map[string]uint64{},
		pullRequests:      map[uint64]*store.PullRequest{},
		prByRepoNum:       map[uint64]map[int]uint64{},
		mergeRules:        map[uint64][]store.MergeRule{},
		prRules:           map[uint64][]store.PullRequestRule{},
		requiredReviewers: map[uint64]map[string]bool{},
		accounts:          map[string]*store.Account{},
		externalAccounts:  map[string]*store.ExternalAccount{},
		externalRights:    map[string]map[uint64]bool{},
	}
}

func key(owner, name string) string { return owner + "/" + name }

func (s *Store) GetOrCreateRepository(owner, name string, defaults store.RepositoryDefaults) (*store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.repoByName[key(owner, name)]; ok {
		r := *s.repositories[id]
		return &r, nil
	}

	s.nextRepoID++
	r := &store.Repository{
		ID:                      s.nextRepoID,
		Owner:                   owner,
		Name:                    name,
		DefaultStrategy:         config.MergeStrategy(defaults.DefaultStrategy),
		DefaultNeededReviewers:  defaults.DefaultNeededReviewers,
		DefaultPRTitleRegex:     defaults.DefaultPRTitleRegex,
		DefaultChecksEnabled:    defaults.DefaultChecksEnabled,
		DefaultQAEnabled:        defaults.DefaultQAEnabled,
		DefaultAutomergeEnabled: defaults.DefaultAutomergeEnabled,
		ManualInteraction:       defaults.ManualInteraction,
	}
	s.repositories[r.ID] = r
	s.repoByName[key(owner, name)] = r.ID
	out := *r
	return &out, nil
}

func (s *Store) GetRepositoryByName(owner, name string) (*store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.repoByName[key(owner, name)]
	if !ok {
		return nil, scberrors.NewNotFound("repository", key(owner, name))
	}
	r := *s.repositories[id]
	return &r, nil
}

func (s *Store) GetRepository(id uint64) (*store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repositories[id]
	if !ok {
		return nil, scberrors.NewNotFound("repository", idString(id))
	}
	out := *r
	return &out, nil
}

func (s *Store) UpdateRepository(r *store.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repositories[r.ID]; !ok {
		return scberrors.NewNotFound("repository", idString(r.ID))
	}
	out := *r
	s.repositories[r.ID] = &out
	return nil
}

func (s *Store) ListRepositories() ([]*store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Repository, 0, len(s.repositories))
	for _, r := range s.repositories {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteRepository(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repositories[id]
	if !ok {
		return scberrors.NewNotFound("repository", idString(id))
	}
	delete(s.repositories, id)
	delete(s.repoByName, key(r.Owner, r.Name))
	return nil
}

func (s *Store) GetOrCreatePullRequest(repositoryID uint64, number int, defaults store.PullRequestDefaults) (*store.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byNum, ok := s.prByRepoNum[repositoryID]; ok {
		if id, ok := byNum[number]; ok {
			out := *s.pullRequests[id]
			return &out, nil
		}
	}

	s.nextPRID++
	pr := &store.PullRequest{
		ID:           s.nextPRID,
		RepositoryID: repositoryID,
		Number:       number,
		QAStatus:     defaults.QAStatus,
		WIP:          defaults.WIP,
	}
	s.pullRequests[pr.ID] = pr
	if s.prByRepoNum[repositoryID] == nil {
		s.prByRepoNum[repositoryID] = map[int]uint64{}
	}
	s.prByRepoNum[repositoryID][number] = pr.ID
	out := *pr
	return &out, nil
}

func (s *Store) GetPullRequest(repositoryID uint64, number int) (*store.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byNum, ok := s.prByRepoNum[repositoryID]
	if !ok {
		return nil, scberrors.NewNotFound("pull_request", prKey(repositoryID, number))
	}
	id, ok := byNum[number]
	if !ok {
		return nil, scberrors.NewNotFound("pull_request", prKey(repositoryID, number))
	}
	out := *s.pullRequests[id]
	return &out, nil
}

func (s *Store) GetPullRequestByID(id uint64) (*store.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.pullRequests[id]
	if !ok {
		return nil, scberrors.NewNotFound("pull_request", idString(id))
	}
	out := *pr
	return &out, nil
}

func (s *Store) UpdatePullRequest(pr *store.PullRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pullRequests[pr.ID]; !ok {
		return scberrors.NewNotFound("pull_request", idString(pr.ID))
	}
	out := *pr
	s.pullRequests[pr.ID] = &out
	return nil
}

func (s *Store) ListPullRequests(repositoryID uint64) ([]*store.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.PullRequest
	for _, id := range s.prByRepoNum[repositoryID] {
		cp := *s.pullRequests[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) GetMergeRule(repositoryID uint64, base, head string) (*store.MergeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.mergeRules[repositoryID] {
		if r.BaseBranch == base && r.HeadBranch == head {
			out := r
			return &out, nil
		}
	}
	return nil, scberrors.NewNotFound("merge_rule", base+"/"+head)
}

func (s *Store) SetMergeRule(rule store.MergeRule) (*store.MergeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := s.mergeRules[rule.RepositoryID]
	for i, r := range rules {
		if r.BaseBranch == rule.BaseBranch && r.HeadBranch == rule.HeadBranch {
			rule.ID = r.ID
			rules[i] = rule
			s.mergeRules[rule.RepositoryID] = rules
			out := rule
			return &out, nil
		}
	}
	s.nextRuleID++
	rule.ID = s.nextRuleID
	s.mergeRules[rule.RepositoryID] = append(rules, rule)
	out := rule
	return &out, nil
}

func (s *Store) ListMergeRules(repositoryID uint64) ([]*store.MergeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.MergeRule
	for _, r := range s.mergeRules[repositoryID] {
		cp := r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) DeleteMergeRule(repositoryID uint64, base, head string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := s.mergeRules[repositoryID]
	for i, r := range rules {
		if r.BaseBranch == base && r.HeadBranch == head {
			s.mergeRules[repositoryID] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return scberrors.NewNotFound("merge_rule", base+"/"+head)
}

func (s *Store) CreatePullRequestRule(rule store.PullRequestRule) (*store.PullRequestRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPRRuleID++
	rule.ID = s.nextPRRuleID
	s.prRules[rule.RepositoryID] = append(s.prRules[rule.RepositoryID], rule)
	out := rule
	return &out, nil
}

func (s *Store) ListPullRequestRules(repositoryID uint64) ([]*store.PullRequestRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.PullRequestRule
	for _, r := range s.prRules[repositoryID] {
		cp := r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) DeletePullRequestRule(repositoryID uint64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := s.prRules[repositoryID]
	for i, r := range rules {
		if r.Name == name {
			s.prRules[repositoryID] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return scberrors.NewNotFound("pull_request_rule", name)
}

func (s *Store) AddRequiredReviewer(pullRequestID uint64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requiredReviewers[pullRequestID] == nil {
		s.requiredReviewers[pullRequestID] = map[string]bool{}
	}
	s.requiredReviewers[pullRequestID][username] = true
	return nil
}

func (s *Store) RemoveRequiredReviewer(pullRequestID uint64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requiredReviewers[pullRequestID], username)
	return nil
}

func (s *Store) ListRequiredReviewers(pullRequestID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for u := range s.requiredReviewers[pullRequestID] {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetAccount(username string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return nil, scberrors.NewNotFound("account", username)
	}
	out := *a
	return &out, nil
}

func (s *Store) UpsertAccount(a store.Account) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := a
	s.accounts[a.Username] = &out
	cp := out
	return &cp, nil
}

func (s *Store) ListAccounts() ([]*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) DeleteAccount(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return scberrors.NewNotFound("account", username)
	}
	delete(s.accounts, username)
	return nil
}

func (s *Store) GetExternalAccount(username string) (*store.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.externalAccounts[username]
	if !ok {
		return nil, scberrors.NewNotFound("external_account", username)
	}
	out := *a
	return &out, nil
}

func (s *Store) UpsertExternalAccount(a store.ExternalAccount) (*store.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := a
	s.externalAccounts[a.Username] = &out
	cp := out
	return &cp, nil
}

func (s *Store) ListExternalAccounts() ([]*store.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.ExternalAccount, 0, len(s.externalAccounts))
	for _, a := range s.externalAccounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) DeleteExternalAccount(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.externalAccounts[username]; !ok {
		return scberrors.NewNotFound("external_account", username)
	}
	delete(s.externalAccounts, username)
	delete(s.externalRights, username)
	return nil
}

func (s *Store) AddExternalAccountRight(username string, repositoryID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.externalRights[username] == nil {
		s.externalRights[username] = map[uint64]bool{}
	}
	s.externalRights[username][repositoryID] = true
	return nil
}

func (s *Store) RemoveExternalAccountRight(username string, repositoryID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.externalRights[username], repositoryID)
	return nil
}

func (s *Store) HasExternalAccountRight(username string, repositoryID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.externalRights[username][repositoryID], nil
}

func (s *Store) ListExternalAccountRights(username string) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for id := range s.externalRights[username] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Export() (*store.ExportDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &store.ExportDocument{}
	for _, r := range s.repositories {
		doc.Repositories = append(doc.Repositories, *r)
	}
	for _, pr := range s.pullRequests {
		doc.PullRequests = append(doc.PullRequests, *pr)
	}
	for _, rules := range s.mergeRules {
		doc.MergeRules = append(doc.MergeRules, rules...)
	}
	for _, rules := range s.prRules {
		doc.PullRequestRules = append(doc.PullRequestRules, rules...)
	}
	for _, a := range s.accounts {
		doc.Accounts = append(doc.Accounts, *a)
	}
	for _, a := range s.externalAccounts {
		doc.ExternalAccounts = append(doc.ExternalAccounts, *a)
	}
	for user, rights := range s.externalRights {
		for repoID := range rights {
			doc.ExternalAccountRights = append(doc.ExternalAccountRights, store.ExternalAccountRight{Username: user, RepositoryID: repoID})
		}
	}
	for prID, reviewers := range s.requiredReviewers {
		for u := range reviewers {
			doc.RequiredReviewers = append(doc.RequiredReviewers, store.RequiredReviewer{PullRequestID: prID, Username: u})
		}
	}
	return doc, nil
}

func (s *Store) Import(doc store.ExportDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range doc.Repositories {
		out := r
		s.repositories[r.ID] = &out
		s.repoByName[key(r.Owner, r.Name)] = r.ID
		if r.ID > s.nextRepoID {
			s.nextRepoID = r.ID
		}
	}
	for _, pr := range doc.PullRequests {
		out := pr
		s.pullRequests[pr.ID] = &out
		if s.prByRepoNum[pr.RepositoryID] == nil {
			s.prByRepoNum[pr.RepositoryID] = map[int]uint64{}
		}
		s.prByRepoNum[pr.RepositoryID][pr.Number] = pr.ID
		if pr.ID > s.nextPRID {
			s.nextPRID = pr.ID
		}
	}
	for _, r := range doc.MergeRules {
		rules := s.mergeRules[r.RepositoryID]
		replaced := false
		for i, existing := range rules {
			if existing.ID == r.ID {
				rules[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, r)
		}
		s.mergeRules[r.RepositoryID] = rules
		if r.ID > s.nextRuleID {
			s.nextRuleID = r.ID
		}
	}
	for _, r := range doc.PullRequestRules {
		rules := s.prRules[r.RepositoryID]
		replaced := false
		for i, existing := range rules {
			if existing.ID == r.ID {
				rules[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, r)
		}
		s.prRules[r.RepositoryID] = rules
		if r.ID > s.nextPRRuleID {
			s.nextPRRuleID = r.ID
		}
	}
	for _, a := range doc.Accounts {
		out := a
		s.accounts[a.Username] = &out
	}
	for _, a := range doc.ExternalAccounts {
		out := a
		s.externalAccounts[a.Username] = &out
	}
	for _, right := range doc.ExternalAccountRights {
		if s.externalRights[right.Username] == nil {
			s.externalRights[right.Username] = map[uint64]bool{}
		}
		s.externalRights[right.Username][right.RepositoryID] = true
	}
	for _, rr := range doc.RequiredReviewers {
		if s.requiredReviewers[rr.PullRequestID] == nil {
			s.requiredReviewers[rr.PullRequestID] = map[string]bool{}
		}
		s.requiredReviewers[rr.PullRequestID][rr.Username] = true
	}
	return nil
}

func (s *Store) Ping() error { return nil }

var _ store.Store = (*Store)(nil)
