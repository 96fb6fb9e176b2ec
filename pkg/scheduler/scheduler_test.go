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

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

type ctxKey struct{}

func TestTimerFiresOnce(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	fired := make(chan string, 1)
	require.NoError(t, timer.ScheduleOnce(testContext(t), 10*time.Millisecond, "job-1", func(ctx context.Context, jobID string) error {
		fired <- jobID
		return nil
	}))
	assert.True(t, timer.IsScheduled("job-1"))
	assert.False(t, timer.IsScheduled("job-2"))

	select {
	case id := <-fired:
		assert.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}

	assert.Eventually(t, func() bool { return !timer.IsScheduled("job-1") }, time.Second, 5*time.Millisecond)
}

func TestTimerReplacesPendingCallback(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	var first, second atomic.Int32
	ctx := testContext(t)
	require.NoError(t, timer.ScheduleOnce(ctx, 50*time.Millisecond, "job-1", func(context.Context, string) error {
		first.Add(1)
		return nil
	}))
	require.NoError(t, timer.ScheduleOnce(ctx, 10*time.Millisecond, "job-1", func(context.Context, string) error {
		second.Add(1)
		return nil
	}))
	assert.Equal(t, 1, timer.Pending())

	assert.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestTimerDetachesCancellation(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	parent, cancel := context.WithCancel(context.WithValue(testContext(t), ctxKey{}, "kept"))
	type observed struct {
		err   error
		value any
	}
	got := make(chan observed, 1)
	require.NoError(t, timer.ScheduleOnce(parent, 10*time.Millisecond, "job-1", func(ctx context.Context, _ string) error {
		got <- observed{err: ctx.Err(), value: ctx.Value(ctxKey{})}
		return errors.New("logged, not returned")
	}))
	cancel()

	select {
	case o := <-got:
		assert.NoError(t, o.err)
		assert.Equal(t, "kept", o.value)
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestTimerStop(t *testing.T) {
	timer := NewTimer()

	var calls atomic.Int32
	require.NoError(t, timer.ScheduleOnce(testContext(t), 20*time.Millisecond, "job-1", func(context.Context, string) error {
		calls.Add(1)
		return nil
	}))
	timer.Stop()

	assert.False(t, timer.IsScheduled("job-1"))
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, calls.Load())

	err := timer.ScheduleOnce(testContext(t), time.Millisecond, "job-2", func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Every(ctx, 5*time.Millisecond, func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("first call fails")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond, "failures do not stop the loop")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
}

func TestEveryRejectsBadInterval(t *testing.T) {
	err := Every(testContext(t), 0, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")
}
