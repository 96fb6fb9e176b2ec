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
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/mediamirror/pkg/batch"
	"github.com/walteh/mediamirror/pkg/jobstore"
	"github.com/walteh/mediamirror/pkg/status"
	"github.com/walteh/mediamirror/pkg/transfer"
	"github.com/walteh/mediamirror/pkg/worklist"
)

var _ batch.Observer = (*Logger)(nil)

// 🎯 Logger prints job events to the console and mirrors them to zerolog
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	formatter status.Formatter
	mu        sync.Mutex

	counts map[transfer.Kind]int
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:      zlog,
		console:   console,
		formatter: status.NewDefaultFormatter(),
		counts:    map[transfer.Kind]int{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 JobStarted prints the job header
func (l *Logger) JobStarted(ctx context.Context, job jobstore.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts = map[transfer.Kind]int{}

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint("job "+job.ID),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(job.LastMessage))

	l.zlog.Info().
		Str("job_id", job.ID).
		Int("total", job.Total).
		Msg("job started")
}

// 📝 ItemDone prints one processed item
func (l *Logger) ItemDone(ctx context.Context, job jobstore.Job, item worklist.Item, outcome transfer.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[outcome.Kind]++
	fmt.Fprintln(l.console, status.FormatItemLine(item.RelPath(), outcome.Kind, job.Done, job.Total))
	if outcome.Failed() {
		fmt.Fprintf(l.console, "      %s\n", color.New(color.FgRed).Sprint(outcome.Message))
	}

	ev := l.zlog.Info()
	if outcome.Failed() {
		ev = l.zlog.Warn()
	}
	ev.Str("job_id", job.ID).
		Str("item", item.RelPath()).
		Str("source", string(item.Source.Kind)).
		Str("outcome", string(outcome.Kind)).
		Int("done", job.Done).
		Int("total", job.Total).
		Msg(outcome.Message)
}

// 📝 JobFinished prints the summary line
func (l *Logger) JobFinished(ctx context.Context, job jobstore.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := fmt.Sprintf("%s • %d copied, %d fetched, %d skipped, %d failed",
		l.formatter.FormatProgress(job.Done, job.Total),
		l.counts[transfer.KindCopied],
		l.counts[transfer.KindFetched],
		l.counts[transfer.KindSkipped],
		l.counts[transfer.KindFailed],
	)
	fmt.Fprintln(l.console, color.New(color.FgGreen).Sprint(summary))

	l.zlog.Info().
		Str("job_id", job.ID).
		Int("done", job.Done).
		Int("failed", l.counts[transfer.KindFailed]).
		Msg("job finished")
}

// 📝 JobCanceled prints a cancel notice
func (l *Logger) JobCanceled(ctx context.Context, jobID string) {
	l.Warning("canceled job " + jobID)
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("mediamirror")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
