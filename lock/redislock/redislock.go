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

// Package redislock implements lock.Lock against Redis, using SET NX EX for
// acquisition so multiple scbotd replicas contend for the same name
// correctly, the way other_examples/manifests' gravitational-teleport and
// LerianStudio-midaz use go-redis/v9 for distributed coordination.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clarketm/scbot-engine/lock"
)

const keyPrefix = "scbot:lock:"

// Lock is a lock.Lock backed by a Redis instance.
type Lock struct {
	client *redis.Client
	ttl    time.Duration
	pause  time.Duration
}

// New builds a Redis-backed lock against an already-constructed client. A
// zero ttl uses lock.DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = lock.DefaultTTL
	}
	return &Lock{client: client, ttl: ttl, pause: 100 * time.Millisecond}
}

func (l *Lock) TryLockResource(name string) error {
	ctx := context.Background()
	ok, err := l.client.SetNX(ctx, keyPrefix+name, "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return lock.ErrAlreadyLocked
	}
	return nil
}

func (l *Lock) WaitLockResource(name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := l.TryLockResource(name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, lock.ErrAlreadyLocked) {
			return err
		}
		if time.Now().After(deadline) {
			return lock.ErrAlreadyLocked
		}
		time.Sleep(l.pause)
	}
}

func (l *Lock) ReleaseLock(name string) error {
	ctx := context.Background()
	err := l.client.Del(ctx, keyPrefix+name).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (l *Lock) Ping() error {
	return l.client.Ping(context.Background()).Err()
}

var _ lock.Lock = (*Lock)(nil)
