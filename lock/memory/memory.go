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

// Package memory implements lock.Lock in process memory, for a
// single-replica deployment or for tests.
package memory

import (
	"sync"
	"time"

	"github.com/clarketm/scbot-engine/lock"
)

// pollInterval is how often WaitLockResource retries a contended lock.
const pollInterval = 100 * time.Millisecond

type entry struct {
	expiresAt time.Time
}

// Lock is an in-process lock.Lock.
type Lock struct {
	mu    sync.Mutex
	held  map[string]entry
	ttl   time.Duration
	pause time.Duration
}

// New builds an in-process lock with the given TTL. A zero ttl uses
// lock.DefaultTTL.
func New(ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = lock.DefaultTTL
	}
	return &Lock{held: map[string]entry{}, ttl: ttl, pause: pollInterval}
}

func (l *Lock) TryLockResource(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.held[name]; ok && time.Now().Before(e.expiresAt) {
		return lock.ErrAlreadyLocked
	}
	l.held[name] = entry{expiresAt: time.Now().Add(l.ttl)}
	return nil
}

func (l *Lock) WaitLockResource(name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := l.TryLockResource(name); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return lock.ErrAlreadyLocked
		}
		time.Sleep(l.pause)
	}
}

func (l *Lock) ReleaseLock(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

func (l *Lock) Ping() error { return nil }

var _ lock.Lock = (*Lock)(nil)
