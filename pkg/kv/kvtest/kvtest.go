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

// Package kvtest holds the behavior every kv.Store implementation must share.
package kvtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/mediamirror/pkg/kv"
)

// FakeClock is a manually advanced kv.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 10, 13, 18, 20, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory builds a fresh, empty store driven by clock.
type Factory func(t *testing.T, clock kv.Clock) kv.Store

// Run exercises the kv.Store contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock)
	}{
		{
			name: "get_missing",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				v, ok, err := s.Get(ctx, "nope")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Nil(t, v)
			},
		},
		{
			name: "put_then_get",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "a", []byte("one"), time.Hour))
				v, ok, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, []byte("one"), v)
			},
		},
		{
			name: "put_replaces",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "a", []byte("one"), time.Hour))
				require.NoError(t, s.Put(ctx, "a", []byte("two"), time.Hour))
				v, ok, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, []byte("two"), v)
			},
		},
		{
			name: "entry_expires",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "a", []byte("one"), time.Hour))
				clock.Advance(59 * time.Minute)
				_, ok, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.True(t, ok, "still live before the deadline")

				clock.Advance(time.Minute)
				_, ok, err = s.Get(ctx, "a")
				require.NoError(t, err)
				assert.False(t, ok, "expired at the deadline")
			},
		},
		{
			name: "zero_ttl_never_expires",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "a", []byte("one"), 0))
				clock.Advance(365 * 24 * time.Hour)
				_, ok, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.True(t, ok)
			},
		},
		{
			name: "delete",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "a", []byte("one"), time.Hour))
				require.NoError(t, s.Delete(ctx, "a"))
				require.NoError(t, s.Delete(ctx, "a"), "deleting twice is fine")
				_, ok, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "put_if_absent",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				stored, err := s.PutIfAbsent(ctx, "lock", []byte("first"), time.Minute)
				require.NoError(t, err)
				assert.True(t, stored)

				stored, err = s.PutIfAbsent(ctx, "lock", []byte("second"), time.Minute)
				require.NoError(t, err)
				assert.False(t, stored)

				v, _, err := s.Get(ctx, "lock")
				require.NoError(t, err)
				assert.Equal(t, []byte("first"), v)

				clock.Advance(time.Minute)
				stored, err = s.PutIfAbsent(ctx, "lock", []byte("third"), time.Minute)
				require.NoError(t, err)
				assert.True(t, stored, "expired entries count as absent")
			},
		},
		{
			name: "compare_and_delete",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				require.NoError(t, s.Put(ctx, "lock", []byte("mine"), time.Minute))

				deleted, err := s.CompareAndDelete(ctx, "lock", []byte("theirs"))
				require.NoError(t, err)
				assert.False(t, deleted, "a different value is left alone")
				_, ok, err := s.Get(ctx, "lock")
				require.NoError(t, err)
				assert.True(t, ok)

				deleted, err = s.CompareAndDelete(ctx, "lock", []byte("mine"))
				require.NoError(t, err)
				assert.True(t, deleted)
				_, ok, err = s.Get(ctx, "lock")
				require.NoError(t, err)
				assert.False(t, ok)

				deleted, err = s.CompareAndDelete(ctx, "lock", []byte("mine"))
				require.NoError(t, err)
				assert.False(t, deleted, "missing keys report false")

				require.NoError(t, s.Put(ctx, "lock", []byte("mine"), time.Minute))
				clock.Advance(time.Minute)
				deleted, err = s.CompareAndDelete(ctx, "lock", []byte("mine"))
				require.NoError(t, err)
				assert.False(t, deleted, "expired entries count as absent")
			},
		},
		{
			name: "returned_value_is_a_copy",
			run: func(t *testing.T, ctx context.Context, s kv.Store, clock *FakeClock) {
				in := []byte("abc")
				require.NoError(t, s.Put(ctx, "a", in, time.Hour))
				in[0] = 'z'

				v, _, err := s.Get(ctx, "a")
				require.NoError(t, err)
				v[1] = 'z'

				again, _, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("abc"), again)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewFakeClock()
			s := factory(t, clock.Now)
			tt.run(t, context.Background(), s, clock)
		})
	}
}
