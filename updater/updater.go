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

// Package updater recomputes and pushes a pull request's derived status:
// step label, summary comment, and commit status, then merges automatically
// if the PR qualifies. It plays the role tide/tide.go's sync loop plays for
// Prow's merge pool, generalised to run once per named lock acquisition
// instead of on a timer, matching spec.md §5's event-driven refresh model.
package updater

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/lock"
	"github.com/clarketm/scbot-engine/merge"
	"github.com/clarketm/scbot-engine/status"
	"github.com/clarketm/scbot-engine/store"
)

// lockWaitTimeout bounds how long Refresh waits for the per-PR lock before
// giving up; a refresh that cannot acquire the lock within this window is
// superseded by whichever holder is already running one.
const lockWaitTimeout = 5 * time.Second

// Updater implements executor.Refresher.
type Updater struct {
	log   *logrus.Entry
	store store.Store
	host  github.HostClient
	lock  lock.Lock
}

// New builds an Updater.
func New(log *logrus.Entry, s store.Store, host github.HostClient, l lock.Lock) *Updater {
	return &Updater{log: log, store: s, host: host, lock: l}
}

func lockName(owner, name string, number int) string {
	return fmt.Sprintf("pr-status/%s/%s/%d", owner, name, number)
}

// Refresh recomputes and pushes the status of (owner, name, number). If the
// per-PR lock is already held, Refresh treats that as a signal that a
// refresh is already underway and returns without error.
func (u *Updater) Refresh(owner, name string, number int) error {
	key := lockName(owner, name, number)
	if err := u.lock.WaitLockResource(key, lockWaitTimeout); err != nil {
		if err == lock.ErrAlreadyLocked {
			u.log.WithField("pr", key).Debug("refresh already in progress, skipping")
			return nil
		}
		return fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	defer func() {
		if err := u.lock.ReleaseLock(key); err != nil {
			u.log.WithError(err).WithField("pr", key).Warn("failed to release lock")
		}
	}()

	return u.refreshLocked(owner, name, number)
}

func (u *Updater) refreshLocked(owner, name string, number int) error {
	repo, err := u.store.GetRepositoryByName(owner, name)
	if err != nil {
		return nil
	}
	pr, err := u.store.GetPullRequest(repo.ID, number)
	if err != nil {
		return nil
	}

	upstream, err := u.host.GetPullRequest(owner, name, number)
	if err != nil {
		return fmt.Errorf("fetching pull request %s/%s#%d: %w", owner, name, number, err)
	}

	requiredReviewers, err := u.store.ListRequiredReviewers(pr.ID)
	if err != nil {
		return fmt.Errorf("listing required reviewers: %w", err)
	}
	reviews, err := u.host.ListReviews(owner, name, number)
	if err != nil {
		return fmt.Errorf("listing reviews: %w", err)
	}
	combined, err := u.host.GetCombinedStatus(owner, name, upstream.Head.SHA)
	if err != nil {
		return fmt.Errorf("fetching combined status: %w", err)
	}

	rules, err := u.store.ListMergeRules(repo.ID)
	if err != nil {
		return fmt.Errorf("listing merge rules: %w", err)
	}
	strategy := merge.ResolveStrategy(repo, pr, rules, upstream.Base.Ref, upstream.Head.Ref)

	s := status.Build(repo, pr, upstream, requiredReviewers, reviews, combined, string(strategy))

	if err := u.updateStepLabel(owner, name, number, s); err != nil {
		return err
	}
	if err := u.updateSummaryComment(owner, name, pr, s); err != nil {
		return err
	}
	if err := u.updateCommitStatus(owner, name, upstream.Head.SHA, s); err != nil {
		return err
	}

	automergeEnabled := repo.DefaultAutomergeEnabled
	if pr.AutomergeEnabled != nil {
		automergeEnabled = *pr.AutomergeEnabled
	}
	if automergeEnabled && !s.Merged && status.StepLabelFor(s) == status.AwaitingMerge {
		u.tryAutomerge(owner, name, upstream, strategy)
	}
	return nil
}

// updateStepLabel replaces whichever step label is currently set with the
// freshly computed one, leaving every non-step label untouched.
func (u *Updater) updateStepLabel(owner, name string, number int, s status.PullRequestStatus) error {
	existing, err := u.host.ListIssueLabels(owner, name, number)
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}
	wanted := status.StepLabelFor(s)

	nonStep := sets.New[string]()
	for _, l := range status.StripStepLabels(existing) {
		nonStep.Insert(l.Name)
	}

	hasWanted := false
	for _, l := range existing {
		if l.Name == wanted {
			hasWanted = true
			continue
		}
		if !nonStep.Has(l.Name) {
			if err := u.host.RemoveLabel(owner, name, number, l.Name); err != nil {
				return fmt.Errorf("removing stale step label %q: %w", l.Name, err)
			}
		}
	}
	if hasWanted {
		return nil
	}
	if err := u.host.AddLabel(owner, name, number, wanted); err != nil {
		return fmt.Errorf("adding step label %q: %w", wanted, err)
	}
	return nil
}

// updateSummaryComment creates the PR summary comment on first refresh, and
// updates it in place thereafter. If the stored comment was deleted on the
// host side, a fresh one is created and its id persisted.
func (u *Updater) updateSummaryComment(owner, name string, pr *store.PullRequest, s status.PullRequestStatus) error {
	body := renderSummary(s)
	if pr.StatusCommentID != 0 {
		exists, err := u.host.CommentExists(owner, name, pr.StatusCommentID)
		if err != nil {
			return fmt.Errorf("checking summary comment: %w", err)
		}
		if exists {
			return u.host.UpdateComment(owner, name, pr.StatusCommentID, body)
		}
	}
	comment, err := u.host.CreateComment(owner, name, pr.Number, body)
	if err != nil {
		return fmt.Errorf("creating summary comment: %w", err)
	}
	pr.StatusCommentID = comment.ID
	return u.store.UpdatePullRequest(pr)
}

func (u *Updater) updateCommitStatus(owner, name, sha string, s status.PullRequestStatus) error {
	cs := status.CommitStatusFor(s)
	return u.host.CreateStatus(owner, name, sha, github.Status{
		Context:     status.CommitStatusContext,
		State:       cs.State,
		Description: cs.Body,
	})
}

// tryAutomerge attempts exactly one merge call; a failure is reported as a
// comment and not retried, leaving the PR for a human or the next refresh.
func (u *Updater) tryAutomerge(owner, name string, upstream *github.PullRequest, strategy config.MergeStrategy) {
	if err := merge.Merge(u.host, owner, name, upstream, strategy); err != nil {
		u.log.WithError(err).WithField("pr", upstream.Number).Warn("automerge failed")
		if _, cerr := u.host.CreateComment(owner, name, upstream.Number,
			fmt.Sprintf("Automerge failed: %v", err)); cerr != nil {
			u.log.WithError(cerr).Warn("failed to post automerge failure comment")
		}
	}
}

func renderSummary(s status.PullRequestStatus) string {
	return fmt.Sprintf(
		"**Status**: %s\n\n- Checks: `%s`\n- QA: `%s`\n- Approved reviewers: %v\n- Missing required reviewers: %v\n- Merge strategy: `%s`",
		status.StepLabelFor(s), s.ChecksStatus, s.QAStatus, s.ApprovedReviewers, s.MissingRequiredReviewers, s.MergeStrategy,
	)
}
