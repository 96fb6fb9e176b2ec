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

// Package jobstore persists the current mirror job and its pending queue.
//
// The job summary and the queue live under separate keys so progress reads
// never decode the full work list. At most one job is current; writing a new
// job replaces the previous summary and leaves the old queue to expire.
package jobstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/walteh/mediamirror/pkg/kv"
	"github.com/walteh/mediamirror/pkg/worklist"
	"gitlab.com/tozd/go/errors"
)

const (
	// DefaultNamespace prefixes every key the store writes.
	DefaultNamespace = "mediamirror_push_state"

	DefaultJobTTL   = time.Hour
	DefaultQueueTTL = 6 * time.Hour
)

// Job is the summary of the current batch.
type Job struct {
	ID          string    `json:"job_id"`
	Total       int       `json:"total"`
	Done        int       `json:"done"`
	Running     bool      `json:"running"`
	LastMessage string    `json:"last_message"`
	StartedAt   time.Time `json:"started_at"`
}

// Remaining is the number of items still queued according to the counters.
func (j Job) Remaining() int {
	return j.Total - j.Done
}

// Options configures a Store.
type Options struct {
	Namespace string
	JobTTL    time.Duration
	QueueTTL  time.Duration
}

// Store reads and writes job state through a kv.Store.
type Store struct {
	kv       kv.Store
	ns       string
	jobTTL   time.Duration
	queueTTL time.Duration
}

// New wraps backend. Zero options fall back to the defaults.
func New(backend kv.Store, opts Options) *Store {
	s := &Store{
		kv:       backend,
		ns:       opts.Namespace,
		jobTTL:   opts.JobTTL,
		queueTTL: opts.QueueTTL,
	}
	if s.ns == "" {
		s.ns = DefaultNamespace
	}
	if s.jobTTL <= 0 {
		s.jobTTL = DefaultJobTTL
	}
	if s.queueTTL <= 0 {
		s.queueTTL = DefaultQueueTTL
	}
	return s
}

func (s *Store) jobKey() string {
	return s.ns
}

func (s *Store) queueKey(jobID string) string {
	return s.ns + "_" + jobID
}

func (s *Store) leaseKey(jobID string) string {
	return s.ns + "_lock_" + jobID
}

func (s *Store) PutJob(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Errorf("encoding job: %w", err)
	}
	if err := s.kv.Put(ctx, s.jobKey(), data, s.jobTTL); err != nil {
		return errors.Errorf("storing job: %w", err)
	}
	return nil
}

// GetJob returns the current job; ok is false when there is none.
func (s *Store) GetJob(ctx context.Context) (job Job, ok bool, err error) {
	data, ok, err := s.kv.Get(ctx, s.jobKey())
	if err != nil {
		return Job{}, false, errors.Errorf("loading job: %w", err)
	}
	if !ok {
		return Job{}, false, nil
	}
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, false, errors.Errorf("decoding job: %w", err)
	}
	return job, true, nil
}

func (s *Store) DeleteJob(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.jobKey()); err != nil {
		return errors.Errorf("deleting job: %w", err)
	}
	return nil
}

func (s *Store) PutQueue(ctx context.Context, jobID string, items []worklist.Item) error {
	if items == nil {
		items = []worklist.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Errorf("encoding queue: %w", err)
	}
	if err := s.kv.Put(ctx, s.queueKey(jobID), data, s.queueTTL); err != nil {
		return errors.Errorf("storing queue: %w", err)
	}
	return nil
}

// GetQueue returns the pending items for jobID; ok is false when the queue is
// gone (deleted or expired).
func (s *Store) GetQueue(ctx context.Context, jobID string) (items []worklist.Item, ok bool, err error) {
	data, ok, err := s.kv.Get(ctx, s.queueKey(jobID))
	if err != nil {
		return nil, false, errors.Errorf("loading queue: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, errors.Errorf("decoding queue: %w", err)
	}
	return items, true, nil
}

func (s *Store) DeleteQueue(ctx context.Context, jobID string) error {
	if err := s.kv.Delete(ctx, s.queueKey(jobID)); err != nil {
		return errors.Errorf("deleting queue: %w", err)
	}
	return nil
}

// AcquireLease claims exclusive chunk processing for jobID until ttl elapses or
// ReleaseLease is called. It reports false when another holder is active.
func (s *Store) AcquireLease(ctx context.Context, jobID, holder string, ttl time.Duration) (bool, error) {
	ok, err := s.kv.PutIfAbsent(ctx, s.leaseKey(jobID), []byte(holder), ttl)
	if err != nil {
		return false, errors.Errorf("acquiring lease: %w", err)
	}
	return ok, nil
}

// ReleaseLease drops holder's lease on jobID. A lease that expired and was
// taken by another holder is left in place; the result reports whether
// holder still owned it.
func (s *Store) ReleaseLease(ctx context.Context, jobID, holder string) (bool, error) {
	released, err := s.kv.CompareAndDelete(ctx, s.leaseKey(jobID), []byte(holder))
	if err != nil {
		return false, errors.Errorf("releasing lease: %w", err)
	}
	return released, nil
}
