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

package redislock

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/lock"
)

func newTestLock(t *testing.T) *Lock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Minute)
}

func TestTryLockResourceExclusivity(t *testing.T) {
	l := newTestLock(t)
	require.NoError(t, l.TryLockResource("acme/widgets#1"))
	require.ErrorIs(t, l.TryLockResource("acme/widgets#1"), lock.ErrAlreadyLocked)
}

func TestReleaseLockIsIdempotent(t *testing.T) {
	l := newTestLock(t)
	require.NoError(t, l.ReleaseLock("never-held"))
	require.NoError(t, l.TryLockResource("held"))
	require.NoError(t, l.ReleaseLock("held"))
	require.NoError(t, l.TryLockResource("held"))
}

func TestPing(t *testing.T) {
	l := newTestLock(t)
	require.NoError(t, l.Ping())
}
