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

// Package command tokenises comment bodies into the bot's fixed command
// vocabulary. A Result is a tagged union: exactly one of its User, Admin
// or Error fields is set, mirroring the way plugins/trigger's
// generic-comment handler treats an unrecognised verb as data, not an
// exception.
package command

// UserKind names one member of the user command vocabulary.
type UserKind string

const (
	KindNoQA                   UserKind = "noqa"
	KindQA                     UserKind = "qa"
	KindQAQuery                UserKind = "qa?"
	KindNoChecks               UserKind = "nochecks"
	KindAutomerge              UserKind = "automerge"
	KindLock                   UserKind = "lock"
	KindReviewersAdd           UserKind = "r+"
	KindReviewersRemove        UserKind = "r-"
	KindRequiredReviewersAdd   UserKind = "req+"
	KindRequiredReviewersRemove UserKind = "req-"
	KindStrategySet            UserKind = "strategy+"
	KindStrategyUnset          UserKind = "strategy-"
	KindMerge                  UserKind = "merge"
	KindLabelsAdd              UserKind = "labels+"
	KindLabelsRemove           UserKind = "labels-"
	KindPing                   UserKind = "ping"
	KindGif                    UserKind = "gif"
	KindIsAdmin                UserKind = "is-admin"
	KindHelp                   UserKind = "help"
)

// AdminKind names one member of the admin command vocabulary.
type AdminKind string

const (
	KindAdminHelp                       AdminKind = "admin-help"
	KindAdminEnable                     AdminKind = "admin-enable"
	KindAdminDisable                    AdminKind = "admin-disable"
	KindAdminAddMergeRule               AdminKind = "admin-add-merge-rule"
	KindAdminSetDefaultNeededReviewers  AdminKind = "admin-set-default-needed-reviewers"
	KindAdminSetDefaultMergeStrategy    AdminKind = "admin-set-default-merge-strategy"
	KindAdminSetDefaultPRTitleRegex     AdminKind = "admin-set-default-pr-title-regex"
	KindAdminSetDefaultAutomerge        AdminKind = "admin-set-default-automerge"
	KindAdminSetDefaultQAStatus         AdminKind = "admin-set-default-qa-status"
	KindAdminSetDefaultChecksStatus     AdminKind = "admin-set-default-checks-status"
	KindAdminSetNeededReviewers         AdminKind = "admin-set-needed-reviewers"
	KindAdminResetReviewers             AdminKind = "admin-reset-reviewers"
	KindAdminResetSummary               AdminKind = "admin-reset-summary"
	KindAdminSync                       AdminKind = "admin-sync"
)

// UserCommand is one parsed instance of the user command vocabulary.
// Enabled carries the polarity of a "±"-suffixed command (true for "+",
// false for "-"); it is meaningless for commands without a polarity.
type UserCommand struct {
	Kind    UserKind
	Enabled bool
	Reason  string   // lock± reason, free text
	Users   []string // r+/r-, req+/req-
	Label   string   // labels+/labels-
	Terms   string   // gif search terms
	Strategy string  // strategy+, merge <strategy?>
}

// AdminCommand is one parsed instance of the admin command vocabulary.
type AdminCommand struct {
	Kind            AdminKind
	Enabled         bool
	BaseBranch      string // admin-add-merge-rule
	HeadBranch      string
	Strategy        string
	NeededReviewers uint64
	TitleRegex      string
}

// ErrorKind classifies why a line failed to parse as a command.
type ErrorKind string

const (
	ErrorUnknown      ErrorKind = "unknown_command"
	ErrorIncomplete   ErrorKind = "incomplete_command"
	ErrorUnparseable  ErrorKind = "unparseable_argument"
)

// ParseError describes one line that matched the bot handle but could not
// be turned into a command.
type ParseError struct {
	Kind   ErrorKind
	Name   string
	Detail string
}

// Result is one parsed line: exactly one of User, Admin or Error is set.
type Result struct {
	User  *UserCommand
	Admin *AdminCommand
	Error *ParseError
}

// IsAdminCommand reports whether name is one of the admin vocabulary's
// command names, independent of whether its arguments parse. Names that
// merely start with "admin-" but are not in the vocabulary return false.
func IsAdminCommand(name string) bool {
	switch AdminKind(name) {
	case KindAdminHelp, KindAdminEnable, KindAdminDisable, KindAdminAddMergeRule,
		KindAdminSetDefaultNeededReviewers, KindAdminSetDefaultMergeStrategy, KindAdminSetDefaultPRTitleRegex,
		KindAdminSetDefaultAutomerge, KindAdminSetDefaultQAStatus, KindAdminSetDefaultChecksStatus,
		KindAdminSetNeededReviewers, KindAdminResetReviewers, KindAdminResetSummary, KindAdminSync:
		return true
	}
	return false
}
