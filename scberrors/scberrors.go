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

// Package scberrors collects the error taxonomy shared across the engine:
// store, auth and merge failures are all distinct, comparable types so
// callers can branch on them with errors.As instead of string matching.
package scberrors

import "fmt"

// NotFoundError is returned by the store when a referenced entity does not
// exist. Kind identifies the entity ("repository", "pull_request",
// "external_account", "account_right", ...) for CLI-readable messaging.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.Key)
}

// NewNotFound builds a NotFoundError for kind/key.
func NewNotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// AuthError is returned by the authorisation layer (command executor,
// external QA endpoint) when a caller lacks the right to perform an action.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

// NewAuth builds an AuthError.
func NewAuth(reason string) error {
	return &AuthError{Reason: reason}
}

// MergeError wraps a failure returned by the host during a merge attempt.
// merge.Merge returns it when the host rejects the merge call. The commit
// status is left at its pre-attempt value by the caller; the executor
// answers a failed merge command with a reaction and a comment, and the
// updater answers a failed automerge with a comment.
type MergeError struct {
	Reason string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed: %s: %v", e.Reason, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMerge builds a MergeError.
func NewMerge(reason string, err error) error {
	return &MergeError{Reason: reason, Err: err}
}
