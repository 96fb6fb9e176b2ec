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

// Package transfer makes one work item present at its mirrored destination.
//
// Each call to Ensure decides between skip, copy and fetch for a single item
// and reports the result as an Outcome. Failures are outcomes, not errors:
// the caller always moves on to the next item.
package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/mediamirror/pkg/worklist"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultHeadTimeout = 15 * time.Second
	DefaultGetTimeout  = 45 * time.Second
	DefaultUserAgent   = "mediamirror"
)

// 📊 Kind classifies an Outcome.
type Kind string

const (
	KindSkipped Kind = "skipped"
	KindCopied  Kind = "copied"
	KindFetched Kind = "fetched"
	KindFailed  Kind = "failed"
)

// Outcome is the result of ensuring one item. Message is the human readable
// line stored as the job's last message.
type Outcome struct {
	Kind    Kind
	Message string
}

func (o Outcome) String() string {
	return o.Message
}

// Failed reports whether the item could not be made present.
func (o Outcome) Failed() bool {
	return o.Kind == KindFailed
}

func skipped(dest string) Outcome {
	return Outcome{Kind: KindSkipped, Message: "Skip (same): " + dest}
}

func failed(format string, args ...any) Outcome {
	return Outcome{Kind: KindFailed, Message: fmt.Sprintf(format, args...)}
}

// Options configures an Executor.
type Options struct {
	Fs          afero.Fs
	Root        string
	Client      *http.Client
	HeadTimeout time.Duration
	GetTimeout  time.Duration
	UserAgent   string
}

// 🚚 Executor copies local sources and fetches remote ones under Root.
type Executor struct {
	fs          afero.Fs
	root        string
	client      *http.Client
	headTimeout time.Duration
	getTimeout  time.Duration
	userAgent   string
}

// 🏭 New creates an executor, filling unset options with defaults.
func New(opts Options) *Executor {
	e := &Executor{
		fs:          opts.Fs,
		root:        filepath.Clean(opts.Root),
		client:      opts.Client,
		headTimeout: opts.HeadTimeout,
		getTimeout:  opts.GetTimeout,
		userAgent:   opts.UserAgent,
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	if e.headTimeout <= 0 {
		e.headTimeout = DefaultHeadTimeout
	}
	if e.getTimeout <= 0 {
		e.getTimeout = DefaultGetTimeout
	}
	if e.userAgent == "" {
		e.userAgent = DefaultUserAgent
	}
	return e
}

// Root is the destination prefix every item is placed under.
func (e *Executor) Root() string {
	return e.root
}

// Destination returns the absolute destination path for item.
func (e *Executor) Destination(item worklist.Item) string {
	return filepath.Join(e.root, filepath.FromSlash(item.DestDir), item.Name)
}

// 🎯 Ensure makes item present at its destination.
func (e *Executor) Ensure(ctx context.Context, item worklist.Item) Outcome {
	logger := zerolog.Ctx(ctx).With().
		Str("item", item.RelPath()).
		Str("source", item.Source.Location).
		Logger()

	dir := filepath.Join(e.root, filepath.FromSlash(item.DestDir))
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		logger.Debug().Err(err).Msg("creating destination directory")
		return failed("mkdir failed: %s", dir)
	}
	dest := filepath.Join(dir, item.Name)

	destSize, exists := e.regularSize(dest)
	if exists && item.Size > 0 && destSize == item.Size {
		return skipped(dest)
	}

	if item.Source.IsRemote() {
		if exists && item.Size == 0 {
			if remote, ok := e.probe(ctx, item.Source.Location); ok && remote == destSize {
				return skipped(dest)
			}
		}
		return e.fetch(ctx, logger, item.Source.Location, dest)
	}

	return e.copy(logger, item.Source.Location, dest)
}

func (e *Executor) regularSize(path string) (int64, bool) {
	info, err := e.fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// probe asks the server for the remote size without downloading the body.
func (e *Executor) probe(ctx context.Context, url string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.headTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("url", url).Msg("head probe failed")
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest || resp.ContentLength <= 0 {
		return 0, false
	}
	return resp.ContentLength, true
}

func (e *Executor) fetch(ctx context.Context, logger zerolog.Logger, url, dest string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.getTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed("Fetch failed: %v", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return failed("Fetch failed: %v", err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	body := &readTracker{r: br}
	if resp.StatusCode >= http.StatusBadRequest {
		if _, err := br.Peek(1); errors.Is(err, io.EOF) {
			return failed("Fetch HTTP %d", resp.StatusCode)
		}
	}

	if err := e.writeAtomic(dest, body); err != nil {
		if body.err != nil {
			return failed("Fetch failed: %v", body.err)
		}
		logger.Debug().Err(err).Str("dest", dest).Msg("writing fetched body")
		return failed("Write failed: %s", dest)
	}
	return Outcome{Kind: KindFetched, Message: "Fetched: " + dest}
}

func (e *Executor) copy(logger zerolog.Logger, src, dest string) Outcome {
	in, err := e.fs.Open(src)
	if err != nil {
		return failed("Read failed: %s", src)
	}
	defer in.Close()

	if info, err := in.Stat(); err != nil || info.IsDir() {
		return failed("Read failed: %s", src)
	}

	if err := e.writeAtomic(dest, in); err != nil {
		logger.Debug().Err(err).Str("dest", dest).Msg("copying local source")
		return failed("Copy failed: %s -> %s", src, dest)
	}
	return Outcome{Kind: KindCopied, Message: "Copied: " + dest}
}

// 💾 writeAtomic streams r into a temp file beside path and renames it into
// place, so a failed transfer never leaves a truncated destination.
func (e *Executor) writeAtomic(path string, r io.Reader) error {
	tmp, err := afero.TempFile(e.fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		e.fs.Remove(tmpPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		e.fs.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := e.fs.Chmod(tmpPath, 0o644); err != nil {
		e.fs.Remove(tmpPath)
		return errors.Errorf("setting permissions: %w", err)
	}
	if err := e.fs.Rename(tmpPath, path); err != nil {
		e.fs.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// readTracker remembers the first read error so a broken response body can
// be told apart from a failing destination.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
