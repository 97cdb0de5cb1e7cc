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

package status

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

// ChecksStatus is the folded state of every non-bot commit status context
// on the PR's head SHA.
type ChecksStatus string

const (
	ChecksPass    ChecksStatus = "pass"
	ChecksFail    ChecksStatus = "fail"
	ChecksWaiting ChecksStatus = "waiting"
	ChecksSkipped ChecksStatus = "skipped"
)

// PullRequestStatus is the fully derived view of a pull request. Every
// field is computed fresh on each refresh; none of it is stored.
type PullRequestStatus struct {
	WIP                      bool
	ValidPRTitle             bool
	ChecksStatus             ChecksStatus
	QAStatus                 store.QAStatus
	NeededReviewersCount     uint64
	ApprovedReviewers        []string
	ChangesRequired          bool
	MissingRequiredReviewers []string
	Mergeable                bool
	Merged                   bool
	Locked                   bool
	MergeStrategy            string
}

// Build folds the local record, repository defaults, upstream snapshot,
// required-reviewer set and upstream review/commit-status lists into a
// PullRequestStatus.
func Build(
	repo *store.Repository,
	pr *store.PullRequest,
	upstream *github.PullRequest,
	requiredReviewers []string,
	reviews []github.Review,
	combined *github.CombinedStatus,
	mergeStrategy string,
) PullRequestStatus {
	s := PullRequestStatus{
		QAStatus: pr.QAStatus,
		Locked:   pr.Locked,
		Mergeable: upstream.Mergeable != nil && *upstream.Mergeable,
		Merged:    upstream.Merged,
		MergeStrategy: mergeStrategy,
	}

	s.WIP = upstream.Draft || pr.WIP || strings.HasPrefix(strings.ToLower(upstream.Title), "wip")
	s.ValidPRTitle = validTitle(repo.DefaultPRTitleRegex, upstream.Title)

	checksEnabled := repo.DefaultChecksEnabled
	if pr.ChecksEnabled != nil {
		checksEnabled = *pr.ChecksEnabled
	}
	s.ChecksStatus = foldChecks(combined, checksEnabled)

	s.NeededReviewersCount = repo.DefaultNeededReviewers
	if pr.NeededReviewers != nil {
		s.NeededReviewersCount = *pr.NeededReviewers
	}

	approved, changesRequired := foldReviews(reviews)
	s.ApprovedReviewers = approved
	s.ChangesRequired = changesRequired
	s.MissingRequiredReviewers = missing(requiredReviewers, approved)

	return s
}

func validTitle(pattern, title string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return true
	}
	return re.MatchString(title)
}

// foldChecks ignores the bot's own "Validation" context, dedupes by
// context keeping the newest entry, and folds with precedence
// Fail > Waiting > Pass.
func foldChecks(combined *github.CombinedStatus, checksEnabled bool) ChecksStatus {
	if !checksEnabled {
		return ChecksSkipped
	}
	if combined == nil || len(combined.Statuses) == 0 {
		return ChecksWaiting
	}

	latest := map[string]github.Status{}
	for _, st := range combined.Statuses {
		if st.Context == CommitStatusContext {
			continue
		}
		latest[st.Context] = st
	}
	if len(latest) == 0 {
		return ChecksWaiting
	}

	sawWaiting := false
	for _, st := range latest {
		switch st.State {
		case github.StatusStateFailure, github.StatusStateError:
			return ChecksFail
		case github.StatusStatePending:
			sawWaiting = true
		}
	}
	if sawWaiting {
		return ChecksWaiting
	}
	return ChecksPass
}

// foldReviews deduplicates by user, keeping each user's latest
// non-Commented state; a later Commented review never displaces a stored
// Approved or ChangesRequested from the same user.
func foldReviews(reviews []github.Review) (approved []string, changesRequired bool) {
	latest := map[string]github.ReviewState{}
	order := map[string]time.Time{}
	for _, r := range reviews {
		user := r.User.Login
		if prev, ok := order[user]; ok && r.SubmittedAt.Before(prev) {
			continue
		}
		if r.State == github.ReviewStateCommented {
			if existing, ok := latest[user]; ok &&
				(existing == github.ReviewStateApproved || existing == github.ReviewStateChangesRequested) {
				continue
			}
		}
		latest[user] = r.State
		order[user] = r.SubmittedAt
	}

	for user, state := range latest {
		switch state {
		case github.ReviewStateApproved:
			approved = append(approved, user)
		case github.ReviewStateChangesRequested:
			changesRequired = true
		}
	}
	sort.Strings(approved)
	return approved, changesRequired
}

// missing returns the required reviewers not present in approved, sorted so
// that two refreshes over identical input always render identical text.
func missing(required, approved []string) []string {
	out := sets.List(sets.New(required...).Difference(sets.New(approved...)))
	if len(out) == 0 {
		return nil
	}
	return out
}

// StepLabelFor derives the single step label for s, per the total ordering
// in which the first matching rule wins.
func StepLabelFor(s PullRequestStatus) string {
	switch {
	case s.WIP:
		return Wip
	case s.ChecksStatus == ChecksWaiting:
		return AwaitingChecks
	case s.ChecksStatus == ChecksFail:
		return AwaitingChanges
	case !s.ValidPRTitle:
		return AwaitingChanges
	case s.ChangesRequired:
		return AwaitingChanges
	case len(s.MissingRequiredReviewers) > 0:
		return AwaitingRequiredReview
	case uint64(len(s.ApprovedReviewers)) < s.NeededReviewersCount:
		return AwaitingReview
	case s.QAStatus == store.QAStatusFail:
		return AwaitingChanges
	case s.QAStatus == store.QAStatusWaiting:
		return AwaitingQa
	case s.Locked:
		return Locked
	default:
		return AwaitingMerge
	}
}
