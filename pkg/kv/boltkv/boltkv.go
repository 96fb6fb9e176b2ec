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

// Package boltkv is a kv.Store backed by a bbolt file.
package boltkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/mediamirror/pkg/kv"
	bolt "go.etcd.io/bbolt"
	"gitlab.com/tozd/go/errors"
)

var bucketEntries = []byte("entries")

// headerLen is the size of the expiry prefix stored before every value.
const headerLen = 8

// Store persists entries in a single bucket. Each stored value is prefixed with
// its expiry as big-endian unix nanoseconds (0 = never).
type Store struct {
	db  *bolt.DB
	now kv.Clock
}

var _ kv.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(c kv.Clock) Option {
	return func(s *Store) {
		s.now = c
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Errorf("creating bucket: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data := encode(value, kv.ExpiresAt(s.now(), ttl))
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), data)
	})
	if err != nil {
		return errors.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEntries).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, expiresAt, err := decode(raw)
		if err != nil {
			return err
		}
		if kv.Expired(s.now(), expiresAt) {
			return nil
		}
		// bolt memory is only valid inside the transaction
		value = make([]byte, len(v))
		copy(value, v)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, errors.Errorf("getting %s: %w", key, err)
	}
	return value, found, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
	if err != nil {
		return errors.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		now := s.now()
		if raw := b.Get([]byte(key)); raw != nil {
			_, expiresAt, err := decode(raw)
			if err == nil && !kv.Expired(now, expiresAt) {
				return nil
			}
		}
		stored = true
		return b.Put([]byte(key), encode(value, kv.ExpiresAt(now, ttl)))
	})
	if err != nil {
		return false, errors.Errorf("putting %s if absent: %w", key, err)
	}
	return stored, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	deleted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, expiresAt, err := decode(raw)
		if err != nil || kv.Expired(s.now(), expiresAt) || !bytes.Equal(v, value) {
			return nil
		}
		deleted = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, errors.Errorf("deleting %s if unchanged: %w", key, err)
	}
	return deleted, nil
}

// Sweep deletes every expired entry and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		now := s.now()

		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			_, expiresAt, err := decode(v)
			if err != nil || kv.Expired(now, expiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Errorf("sweeping expired entries: %w", err)
	}
	if removed > 0 {
		zerolog.Ctx(ctx).Debug().Int("removed", removed).Msg("swept expired entries")
	}
	return removed, nil
}

func encode(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, headerLen+len(value))
	var ns int64
	if !expiresAt.IsZero() {
		ns = expiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(out[:headerLen], uint64(ns))
	copy(out[headerLen:], value)
	return out
}

func decode(raw []byte) ([]byte, time.Time, error) {
	if len(raw) < headerLen {
		return nil, time.Time{}, errors.Errorf("corrupt entry: %d bytes", len(raw))
	}
	var expiresAt time.Time
	if ns := int64(binary.BigEndian.Uint64(raw[:headerLen])); ns != 0 {
		expiresAt = time.Unix(0, ns)
	}
	return raw[headerLen:], expiresAt, nil
}
