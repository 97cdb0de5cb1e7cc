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

// Package lock provides named, TTL-bounded mutual exclusion for the
// per-pull-request critical section in the status updater, with an
// in-process backend for single-replica deployments and a Redis-backed
// backend for horizontally scaled ones.
package lock

import (
	"errors"
	"time"
)

// DefaultTTL is how long a held lock survives before it is considered
// abandoned and eligible for reclaiming by another waiter.
const DefaultTTL = 30 * time.Second

// ErrAlreadyLocked is returned by TryLockResource when the name is already
// held by someone else.
var ErrAlreadyLocked = errors.New("resource is already locked")

// Lock provides named mutual exclusion across process boundaries. Resource
// names are opaque strings; callers key them by repository and PR number.
type Lock interface {
	// TryLockResource attempts to acquire name without blocking. It
	// returns ErrAlreadyLocked if someone else holds it.
	TryLockResource(name string) error

	// WaitLockResource blocks up to timeout trying to acquire name,
	// polling at a short interval. It returns ErrAlreadyLocked if the
	// timeout elapses without acquiring the lock.
	WaitLockResource(name string, timeout time.Duration) error

	// ReleaseLock releases name. It is idempotent: releasing a name that
	// is not held (or already expired) is not an error.
	ReleaseLock(name string) error

	// Ping reports whether the backend is reachable, for GET /health.
	Ping() error
}
