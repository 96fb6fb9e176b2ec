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

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/mediamirror/pkg/catalog"
	"github.com/walteh/mediamirror/pkg/jobstore"
	"github.com/walteh/mediamirror/pkg/transfer"
	"github.com/walteh/mediamirror/pkg/worklist"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultChunkSize = 6
	DefaultDelay     = 5 * time.Second
	DefaultLease     = 10 * time.Minute

	IdleMessage = "Idle"
	DoneMessage = "Done"
)

// ResumeFunc continues a job; it is what a Scheduler calls back.
type ResumeFunc func(ctx context.Context, jobID string) error

// ⏰ Scheduler re-invokes a job after a delay.
type Scheduler interface {
	// ScheduleOnce arranges for fn(ctx, jobID) to run after delay.
	ScheduleOnce(ctx context.Context, delay time.Duration, jobID string, fn ResumeFunc) error
	// IsScheduled reports whether a callback for jobID is pending.
	IsScheduled(jobID string) bool
}

// Planner turns a catalog into the ordered work list.
type Planner interface {
	Build(ctx context.Context, cat catalog.Catalog) ([]worklist.Item, error)
}

// Executor makes a single item present at its destination.
type Executor interface {
	Ensure(ctx context.Context, item worklist.Item) transfer.Outcome
}

// 👀 Observer is told about job lifecycle events as they are persisted.
type Observer interface {
	JobStarted(ctx context.Context, job jobstore.Job)
	ItemDone(ctx context.Context, job jobstore.Job, item worklist.Item, outcome transfer.Outcome)
	JobFinished(ctx context.Context, job jobstore.Job)
	JobCanceled(ctx context.Context, jobID string)
}

type nopObserver struct{}

func (nopObserver) JobStarted(context.Context, jobstore.Job)                              {}
func (nopObserver) ItemDone(context.Context, jobstore.Job, worklist.Item, transfer.Outcome) {}
func (nopObserver) JobFinished(context.Context, jobstore.Job)                             {}
func (nopObserver) JobCanceled(context.Context, string)                                   {}

// Progress is the poller's view of the current job.
type Progress struct {
	JobID       string `json:"job_id,omitempty"`
	Total       int    `json:"total"`
	Done        int    `json:"done"`
	Running     bool   `json:"running"`
	LastMessage string `json:"last_message"`
}

// IdleProgress is reported when no job exists.
func IdleProgress() Progress {
	return Progress{LastMessage: IdleMessage}
}

func progressOf(job jobstore.Job) Progress {
	return Progress{
		JobID:       job.ID,
		Total:       job.Total,
		Done:        job.Done,
		Running:     job.Running,
		LastMessage: job.LastMessage,
	}
}

// Options configures a Processor. Catalog, Planner, Store and Executor are
// required.
type Options struct {
	Catalog   catalog.Reader
	Planner   Planner
	Store     *jobstore.Store
	Executor  Executor
	Scheduler Scheduler
	Observer  Observer

	ChunkSize int
	Delay     time.Duration
	Lease     time.Duration

	Now   func() time.Time
	NewID func() string
}

// 🔄 Processor is the job state machine.
type Processor struct {
	catalog   catalog.Reader
	planner   Planner
	store     *jobstore.Store
	executor  Executor
	scheduler Scheduler
	observer  Observer

	chunkSize int
	delay     time.Duration
	lease     time.Duration
	now       func() time.Time
	newID     func() string

	holder string
	flight singleflight.Group
}

// 🏭 New validates opts and creates a Processor.
func New(opts Options) (*Processor, error) {
	if opts.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if opts.Planner == nil {
		return nil, errors.New("planner is required")
	}
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}

	p := &Processor{
		catalog:   opts.Catalog,
		planner:   opts.Planner,
		store:     opts.Store,
		executor:  opts.Executor,
		scheduler: opts.Scheduler,
		observer:  opts.Observer,
		chunkSize: opts.ChunkSize,
		delay:     opts.Delay,
		lease:     opts.Lease,
		now:       opts.Now,
		newID:     opts.NewID,
		holder:    uuid.NewString(),
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	if p.chunkSize <= 0 {
		p.chunkSize = DefaultChunkSize
	}
	if p.delay <= 0 {
		p.delay = DefaultDelay
	}
	if p.lease <= 0 {
		p.lease = DefaultLease
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p, nil
}

// 🚀 Start builds a fresh work list and replaces any current job with it. It
// runs the first chunk before returning and leaves the rest to the scheduler.
// The first chunk ignores cancellation of ctx so a dropped request does not
// cut it short.
func (p *Processor) Start(ctx context.Context) (string, error) {
	cat, err := p.catalog.Read(ctx)
	if err != nil {
		return "", errors.Errorf("reading catalog: %w", err)
	}

	items, err := p.planner.Build(ctx, cat)
	if err != nil {
		return "", errors.Errorf("building work list: %w", err)
	}

	job := jobstore.Job{
		ID:          p.newID(),
		Total:       len(items),
		Running:     true,
		LastMessage: fmt.Sprintf("Queued %d items", len(items)),
		StartedAt:   p.now().UTC(),
	}

	// queue first so a poller never sees a running job without one
	if err := p.store.PutQueue(ctx, job.ID, items); err != nil {
		return "", err
	}
	if err := p.store.PutJob(ctx, job); err != nil {
		return "", err
	}

	zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Int("total", job.Total).Msg("job started")
	p.observer.JobStarted(ctx, job)

	if err := p.RunChunk(context.WithoutCancel(ctx), job.ID); err != nil {
		return job.ID, errors.Errorf("running first chunk: %w", err)
	}

	if p.scheduler != nil && !p.scheduler.IsScheduled(job.ID) {
		if err := p.scheduler.ScheduleOnce(ctx, p.delay, job.ID, p.RunChunk); err != nil {
			return job.ID, errors.Errorf("scheduling fallback chunk: %w", err)
		}
	}

	return job.ID, nil
}

// ▶️ RunChunk processes the next slice of jobID's queue. It is a no-op when
// jobID is not the current running job or another chunk holds the job.
func (p *Processor) RunChunk(ctx context.Context, jobID string) error {
	_, err, shared := p.flight.Do(jobID, func() (any, error) {
		return nil, p.runChunk(ctx, jobID)
	})
	if shared {
		zerolog.Ctx(ctx).Debug().Str("job_id", jobID).Msg("joined in-flight chunk")
	}
	return err
}

// runChunk stops early when ctx is canceled; items not yet counted stay
// queued and a retry is scheduled.
func (p *Processor) runChunk(ctx context.Context, jobID string) error {
	logger := zerolog.Ctx(ctx).With().Str("job_id", jobID).Logger()
	// bookkeeping must land even after ctx is canceled
	keep := context.WithoutCancel(ctx)

	job, live, err := p.current(keep, jobID)
	if err != nil || !live {
		return err
	}

	acquired, err := p.store.AcquireLease(keep, jobID, p.holder, p.lease)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Debug().Msg("chunk lease held elsewhere")
		return p.scheduleRetry(keep, jobID)
	}
	defer func() {
		if _, err := p.store.ReleaseLease(keep, jobID, p.holder); err != nil {
			logger.Warn().Err(err).Msg("releasing chunk lease")
		}
	}()

	queue, _, err := p.store.GetQueue(keep, jobID)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return p.finish(keep, job)
	}

	n := min(p.chunkSize, len(queue))
	processed := 0
	for i, item := range queue[:n] {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			// a cancel or a new Start between items ends this chunk
			if job, live, err = p.current(keep, jobID); err != nil || !live {
				return err
			}
		}

		outcome := p.executor.Ensure(ctx, item)
		if ctx.Err() != nil {
			logger.Debug().Str("item", item.RelPath()).Msg("interrupted, leaving item queued")
			break
		}
		logger.Debug().Str("item", item.RelPath()).Str("outcome", string(outcome.Kind)).Msg(outcome.Message)

		if _, live, err = p.current(keep, jobID); err != nil || !live {
			return err
		}
		if job.Done < job.Total {
			job.Done++
		}
		job.LastMessage = outcome.Message
		if err := p.store.PutJob(keep, job); err != nil {
			return err
		}
		processed++
		p.observer.ItemDone(keep, job, item, outcome)
	}

	rest := queue[processed:]
	if err := p.store.PutQueue(keep, jobID, rest); err != nil {
		return err
	}
	if len(rest) == 0 {
		return p.finish(keep, job)
	}

	if p.scheduler != nil {
		if err := p.scheduler.ScheduleOnce(keep, p.delay, jobID, p.RunChunk); err != nil {
			return errors.Errorf("scheduling next chunk: %w", err)
		}
	}
	return nil
}

// scheduleRetry arranges another attempt at jobID unless one is pending.
func (p *Processor) scheduleRetry(ctx context.Context, jobID string) error {
	if p.scheduler == nil || p.scheduler.IsScheduled(jobID) {
		return nil
	}
	if err := p.scheduler.ScheduleOnce(ctx, p.delay, jobID, p.RunChunk); err != nil {
		return errors.Errorf("scheduling retry: %w", err)
	}
	return nil
}

// current loads the job and reports whether it is the running job jobID.
func (p *Processor) current(ctx context.Context, jobID string) (jobstore.Job, bool, error) {
	job, ok, err := p.store.GetJob(ctx)
	if err != nil {
		return jobstore.Job{}, false, err
	}
	if !ok || !job.Running || job.ID != jobID {
		zerolog.Ctx(ctx).Debug().Str("job_id", jobID).Msg("job is not current, skipping chunk")
		return jobstore.Job{}, false, nil
	}
	return job, true, nil
}

func (p *Processor) finish(ctx context.Context, job jobstore.Job) error {
	job.Running = false
	job.LastMessage = DoneMessage
	if err := p.store.PutJob(ctx, job); err != nil {
		return err
	}
	if err := p.store.DeleteQueue(ctx, job.ID); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Int("done", job.Done).Msg("job finished")
	p.observer.JobFinished(ctx, job)
	return nil
}

// 📊 Progress reports the current job, or IdleProgress when there is none.
func (p *Processor) Progress(ctx context.Context) (Progress, error) {
	job, ok, err := p.store.GetJob(ctx)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return IdleProgress(), nil
	}
	return progressOf(job), nil
}

// 🛑 Cancel drops the current job and its queue.
func (p *Processor) Cancel(ctx context.Context) error {
	job, ok, err := p.store.GetJob(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := p.store.DeleteQueue(ctx, job.ID); err != nil {
			return err
		}
	}
	if err := p.store.DeleteJob(ctx); err != nil {
		return err
	}
	if ok {
		zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Msg("job canceled")
		p.observer.JobCanceled(ctx, job.ID)
	}
	return nil
}

// Resume runs the next chunk of jobID, or of the current job when jobID is
// empty, and returns the progress afterwards.
func (p *Processor) Resume(ctx context.Context, jobID string) (Progress, error) {
	if jobID == "" {
		prog, err := p.Progress(ctx)
		if err != nil {
			return Progress{}, err
		}
		if !prog.Running {
			return prog, nil
		}
		jobID = prog.JobID
	}
	if err := p.RunChunk(ctx, jobID); err != nil {
		return Progress{}, err
	}
	return p.Progress(ctx)
}

// ⏩ Drain runs chunks of jobID back to back until the job stops running,
// is replaced, or ctx ends. When a chunk makes no progress (another holder
// has the lease) it waits one Delay before trying again.
func (p *Processor) Drain(ctx context.Context, jobID string) (Progress, error) {
	for {
		before, err := p.Progress(ctx)
		if err != nil {
			return Progress{}, err
		}
		if !before.Running || before.JobID != jobID {
			return before, nil
		}

		if err := p.RunChunk(ctx, jobID); err != nil {
			return Progress{}, err
		}

		after, err := p.Progress(ctx)
		if err != nil {
			return Progress{}, err
		}
		if after.Running && after.JobID == jobID && after.Done == before.Done {
			select {
			case <-ctx.Done():
				return after, ctx.Err()
			case <-time.After(p.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return after, err
		}
	}
}
