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

// Package kv defines the expiring key-value layer job state is persisted in.
package kv

import (
	"context"
	"time"
)

// Store is a key-value store whose entries may expire. Each call is atomic
// with respect to its key. Expired entries read as absent.
type Store interface {
	// Put stores value under key. A ttl <= 0 never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PutIfAbsent stores value only when key is absent or expired and reports
	// whether it did.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it holds a live value equal to
	// value and reports whether it did.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
}

// Clock returns the current time. Stores accept one so expiry can be tested.
type Clock func() time.Time

// ExpiresAt converts a ttl to an absolute deadline; the zero time means never.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Expired reports whether deadline has passed at now.
func Expired(now, deadline time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}
