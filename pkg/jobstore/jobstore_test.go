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

package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/mediamirror/pkg/kv/kvtest"
	"github.com/walteh/mediamirror/pkg/kv/memkv"
	"github.com/walteh/mediamirror/pkg/worklist"
)

func newTestStore(t *testing.T) (*Store, *memkv.Store, *kvtest.FakeClock) {
	t.Helper()
	clock := kvtest.NewFakeClock()
	backend := memkv.New(memkv.WithClock(clock.Now))
	return New(backend, Options{}), backend, clock
}

func TestJobRoundTrip(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetJob(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	job := Job{
		ID:          "job-1",
		Total:       4,
		Done:        1,
		Running:     true,
		LastMessage: "Copied: /dest/a.png",
		StartedAt:   clock.Now(),
	}
	require.NoError(t, s.PutJob(ctx, job))

	got, ok, err := s.GetJob(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, 3, got.Remaining())
	assert.True(t, job.StartedAt.Equal(got.StartedAt))

	require.NoError(t, s.DeleteJob(ctx))
	_, ok, err = s.GetJob(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	items := []worklist.Item{
		{DestDir: "Shop/Tee", Name: "tee.png", Size: 10, Source: worklist.LocalSource("/u/tee.png")},
		{DestDir: "Shop/Tee", Name: "art.ai", Source: worklist.RemoteSource("https://x/art.ai")},
	}
	require.NoError(t, s.PutQueue(ctx, "job-1", items))

	got, ok, err := s.GetQueue(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, items, got)

	_, ok, err = s.GetQueue(ctx, "job-2")
	require.NoError(t, err)
	assert.False(t, ok, "queues are keyed by job id")

	require.NoError(t, s.PutQueue(ctx, "job-1", nil))
	got, ok, err = s.GetQueue(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, s.DeleteQueue(ctx, "job-1"))
	_, ok, err = s.GetQueue(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTLs(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutJob(ctx, Job{ID: "job-1", Running: true}))
	require.NoError(t, s.PutQueue(ctx, "job-1", []worklist.Item{{DestDir: "a", Name: "b"}}))

	clock.Advance(DefaultJobTTL)
	_, ok, err := s.GetJob(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "job summary expires after an hour")

	_, ok, err = s.GetQueue(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok, "queue outlives the summary")

	clock.Advance(DefaultQueueTTL - DefaultJobTTL)
	_, ok, err = s.GetQueue(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewJobOrphansPreviousQueue(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutJob(ctx, Job{ID: "old", Running: true}))
	require.NoError(t, s.PutQueue(ctx, "old", []worklist.Item{{DestDir: "a", Name: "b"}}))
	require.NoError(t, s.PutJob(ctx, Job{ID: "new", Running: true}))

	job, ok, err := s.GetJob(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", job.ID)
	assert.Equal(t, 2, backend.Len(), "old queue is left for expiry")
}

func TestLease(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireLease(ctx, "job-1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLease(ctx, "job-1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.AcquireLease(ctx, "job-2", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "leases are per job")

	released, err := s.ReleaseLease(ctx, "job-1", "b")
	require.NoError(t, err)
	assert.False(t, released, "only the holder can release")

	released, err = s.ReleaseLease(ctx, "job-1", "a")
	require.NoError(t, err)
	assert.True(t, released)
	ok, err = s.AcquireLease(ctx, "job-1", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	ok, err = s.AcquireLease(ctx, "job-1", "c", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "stale leases expire")
}

func TestReleaseAfterLeaseTakenOver(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireLease(ctx, "job-1", "slow", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	ok, err = s.AcquireLease(ctx, "job-1", "fresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := s.ReleaseLease(ctx, "job-1", "slow")
	require.NoError(t, err)
	assert.False(t, released)

	ok, err = s.AcquireLease(ctx, "job-1", "third", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "the new holder keeps its lease")
}

func TestCustomNamespace(t *testing.T) {
	backend := memkv.New()
	ctx := context.Background()

	a := New(backend, Options{Namespace: "a"})
	b := New(backend, Options{Namespace: "b"})
	require.NoError(t, a.PutJob(ctx, Job{ID: "1"}))

	_, ok, err := b.GetJob(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
