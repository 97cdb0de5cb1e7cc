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
	"fmt"
	"strings"

	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/store"
)

// CommitStatus is the state/body pair pushed to the host on the PR head
// SHA under the fixed Validation context.
type CommitStatus struct {
	State github.StatusState
	Body  string
}

// CommitStatusFor derives the commit status from s, checking conditions in
// the order given in the mapping table.
func CommitStatusFor(s PullRequestStatus) CommitStatus {
	switch {
	case s.WIP:
		return CommitStatus{github.StatusStateFailure, "PR is still in WIP"}
	case !s.ValidPRTitle:
		return CommitStatus{github.StatusStateFailure, "PR title does not match regex."}
	case s.ChecksStatus == ChecksFail:
		return CommitStatus{github.StatusStateFailure, "Checks failed. Please fix."}
	case s.ChecksStatus == ChecksWaiting:
		return CommitStatus{github.StatusStatePending, "Waiting for checks"}
	case s.ChangesRequired:
		return CommitStatus{github.StatusStateFailure, "Changes required"}
	case !s.Mergeable && !s.Merged:
		return CommitStatus{github.StatusStateFailure, "Pull request is not mergeable."}
	case len(s.MissingRequiredReviewers) > 0:
		return CommitStatus{github.StatusStatePending, fmt.Sprintf("Waiting on mandatory reviews (%s)", strings.Join(s.MissingRequiredReviewers, ", "))}
	case uint64(len(s.ApprovedReviewers)) < s.NeededReviewersCount:
		return CommitStatus{github.StatusStatePending, "Waiting on reviews"}
	case s.QAStatus == store.QAStatusFail:
		return CommitStatus{github.StatusStateFailure, "QA failed. Please fix."}
	case s.QAStatus == store.QAStatusWaiting:
		return CommitStatus{github.StatusStatePending, "Waiting for QA"}
	case s.Locked:
		return CommitStatus{github.StatusStateFailure, "PR is locked"}
	default:
		return CommitStatus{github.StatusStateSuccess, "All good."}
	}
}

// StripStepLabels returns issueLabels with every known step label removed.
func StripStepLabels(issueLabels []github.Label) []github.Label {
	known := map[string]bool{}
	for _, l := range stepLabels {
		known[l] = true
	}
	var out []github.Label
	for _, l := range issueLabels {
		if !known[l.Name] {
			out = append(out, l)
		}
	}
	return out
}
