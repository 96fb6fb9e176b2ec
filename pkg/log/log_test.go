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

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/mediamirror/pkg/jobstore"
	"github.com/walteh/mediamirror/pkg/transfer"
	"github.com/walteh/mediamirror/pkg/worklist"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	item := worklist.Item{DestDir: "Shop/Tee", Name: "tee.png", Source: worklist.LocalSource("/u/tee.png")}
	art := worklist.Item{DestDir: "Shop/Tee", Name: "art.ai", Source: worklist.RemoteSource("https://x/art.ai")}

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "job_lifecycle",
			op: func(t *testing.T, logger *Logger) {
				ctx := context.Background()
				logger.JobStarted(ctx, jobstore.Job{ID: "job-1", Total: 2, Running: true, LastMessage: "Queued 2 items"})
				logger.ItemDone(ctx, jobstore.Job{ID: "job-1", Total: 2, Done: 1}, item, transfer.Outcome{Kind: transfer.KindCopied, Message: "Copied: /m/Shop/Tee/tee.png"})
				logger.ItemDone(ctx, jobstore.Job{ID: "job-1", Total: 2, Done: 2}, art, transfer.Outcome{Kind: transfer.KindFailed, Message: "Fetch HTTP 404"})
				logger.JobFinished(ctx, jobstore.Job{ID: "job-1", Total: 2, Done: 2})
			},
			wantLogs: []string{
				"◆ job job-1 • Queued 2 items",
				"✓ Shop/Tee/tee.png                              copied           1/2",
				"✗ Shop/Tee/art.ai                               failed           2/2",
				"Fetch HTTP 404",
				"✅ Progress: 2/2 (100%) • 1 copied, 0 fetched, 0 skipped, 1 failed",
			},
		},
		{
			name: "job_canceled",
			op: func(t *testing.T, logger *Logger) {
				logger.JobCanceled(context.Background(), "job-9")
			},
			wantLogs: []string{
				"⚠️  canceled job job-9",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("mirroring product media")
			},
			wantLogs: []string{
				"mediamirror • mirroring product media",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.New(zerolog.NewTestWriter(t)))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestCountsResetPerJob(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	buf := &bytes.Buffer{}
	logger := New(buf, zerolog.Nop())
	ctx := context.Background()
	item := worklist.Item{DestDir: "a", Name: "b"}

	logger.JobStarted(ctx, jobstore.Job{ID: "job-1", Total: 1})
	logger.ItemDone(ctx, jobstore.Job{ID: "job-1", Total: 1, Done: 1}, item, transfer.Outcome{Kind: transfer.KindSkipped})
	logger.JobStarted(ctx, jobstore.Job{ID: "job-2", Total: 1})
	logger.JobFinished(ctx, jobstore.Job{ID: "job-2", Total: 1, Done: 1})

	assert.Contains(t, buf.String(), "0 copied, 0 fetched, 0 skipped, 0 failed")
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.Nop())

	ctx := context.Background()
	ctx = NewContext(ctx, logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}
