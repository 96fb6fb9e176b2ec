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

// Package scheduler provides in-process triggers for mirror jobs: a delayed
// per-job callback for continuing chunks and a fixed interval trigger for
// starting jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/mediamirror/pkg/batch"
	"gitlab.com/tozd/go/errors"
)

// ErrStopped is returned when scheduling on a stopped Timer.
var ErrStopped = errors.New("scheduler stopped")

var _ batch.Scheduler = (*Timer)(nil)

// ⏰ Timer keeps at most one pending callback per job id.
type Timer struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	running sync.WaitGroup
}

// 🏭 NewTimer creates an empty Timer.
func NewTimer() *Timer {
	return &Timer{pending: map[string]*time.Timer{}}
}

// ScheduleOnce runs fn(ctx, jobID) after delay, replacing any callback
// already pending for jobID. The callback's context keeps ctx's values but
// not its cancellation, so a finished request does not cancel the chunk.
func (t *Timer) ScheduleOnce(ctx context.Context, delay time.Duration, jobID string, fn batch.ResumeFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrStopped
	}
	if prev, ok := t.pending[jobID]; ok {
		prev.Stop()
	}

	detached := context.WithoutCancel(ctx)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.pending[jobID] == timer {
			delete(t.pending, jobID)
		}
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.running.Add(1)
		t.mu.Unlock()
		defer t.running.Done()

		if err := fn(detached, jobID); err != nil {
			zerolog.Ctx(detached).Error().Err(err).Str("job_id", jobID).Msg("scheduled chunk failed")
		}
	})
	t.pending[jobID] = timer

	zerolog.Ctx(ctx).Debug().Str("job_id", jobID).Dur("delay", delay).Msg("chunk scheduled")
	return nil
}

// IsScheduled reports whether a callback for jobID has not fired yet.
func (t *Timer) IsScheduled(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[jobID]
	return ok
}

// Pending returns the number of callbacks waiting to fire.
func (t *Timer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// 🛑 Stop cancels every pending callback and waits for running ones.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	for id, timer := range t.pending {
		timer.Stop()
		delete(t.pending, id)
	}
	t.mu.Unlock()

	t.running.Wait()
}
