// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memkv is an in-process kv.Store.
package memkv

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/walteh/mediamirror/pkg/kv"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store keeps entries in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	now     kv.Clock
	entries map[string]entry
}

var _ kv.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(c kv.Clock) Option {
	return func(s *Store) {
		s.now = c
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: clone(value), expiresAt: kv.ExpiresAt(s.now(), ttl)}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if kv.Expired(s.now(), e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && !kv.Expired(now, e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{value: clone(value), expiresAt: kv.ExpiresAt(now, ttl)}
	return true, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || kv.Expired(s.now(), e.expiresAt) || !bytes.Equal(e.value, value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !kv.Expired(now, e.expiresAt) {
			n++
		}
	}
	return n
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
