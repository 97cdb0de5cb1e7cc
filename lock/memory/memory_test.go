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

package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/lock"
)

func TestTryLockResourceExclusivity(t *testing.T) {
	l := New(time.Minute)
	require.NoError(t, l.TryLockResource("acme/widgets#1"))
	require.ErrorIs(t, l.TryLockResource("acme/widgets#1"), lock.ErrAlreadyLocked)
	require.NoError(t, l.TryLockResource("acme/widgets#2"))
}

func TestReleaseLockIsIdempotent(t *testing.T) {
	l := New(time.Minute)
	require.NoError(t, l.ReleaseLock("never-held"))
	require.NoError(t, l.TryLockResource("held"))
	require.NoError(t, l.ReleaseLock("held"))
	require.NoError(t, l.ReleaseLock("held"))
	require.NoError(t, l.TryLockResource("held"))
}

func TestLockExpiresAfterTTL(t *testing.T) {
	l := New(10 * time.Millisecond)
	require.NoError(t, l.TryLockResource("r"))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.TryLockResource("r"))
}

func TestWaitLockResourceTimesOut(t *testing.T) {
	l := New(time.Minute)
	require.NoError(t, l.TryLockResource("r"))
	err := l.WaitLockResource("r", 60*time.Millisecond)
	require.ErrorIs(t, err, lock.ErrAlreadyLocked)
}

func TestWaitLockResourceAcquiresOnceReleased(t *testing.T) {
	l := New(time.Minute)
	require.NoError(t, l.TryLockResource("r"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = l.ReleaseLock("r")
	}()
	require.NoError(t, l.WaitLockResource("r", time.Second))
}
