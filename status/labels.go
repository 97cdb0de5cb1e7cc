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

// Package status folds a pull request's local record, upstream snapshot
// and review/check state into a PullRequestStatus, and derives the step
// label and commit-status presentation from it.
package status

// The step labels are the fixed set of labels the bot maintains to
// advertise the next action required on a pull request. Only one is ever
// present at a time.
const (
	Wip                    = "status/wip"
	AwaitingChecks         = "status/awaiting-checks"
	AwaitingChanges        = "status/awaiting-changes"
	AwaitingRequiredReview = "status/awaiting-required-review"
	AwaitingReview         = "status/awaiting-review"
	AwaitingQa             = "status/awaiting-qa"
	Locked                 = "status/locked"
	AwaitingMerge          = "status/awaiting-merge"
)

// stepLabels is every label StepLabelFor may emit, in priority order; used to
// strip stale step labels before adding the freshly computed one.
var stepLabels = []string{
	Wip,
	AwaitingChecks,
	AwaitingChanges,
	AwaitingRequiredReview,
	AwaitingReview,
	AwaitingQa,
	Locked,
	AwaitingMerge,
}

// CommitStatusContext is the fixed commit-status context name the bot
// pushes to the host.
const CommitStatusContext = "Validation"
