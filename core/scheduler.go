package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// defaultRetryInterval is the first backoff delay between analyzer attempts.
const defaultRetryInterval = 500 * time.Millisecond

// Task is the work a scheduled job performs.
type Task func(ctx context.Context, job schema.Job) (schema.Report, error)

// Outcome is the terminal state of one job.
type Outcome struct {
	Job      schema.Job
	Report   schema.Report
	Err      error
	Attempts int
	Duration time.Duration
}

// Cancelled reports whether the job was dropped before it started.
func (o Outcome) Cancelled() bool {
	return errors.Is(o.Err, contract.ErrCancelled)
}

// Future settles exactly once with the outcome of a submitted job.
type Future struct {
	done    chan struct{}
	outcome Outcome
}

// Done is closed when the job is terminal.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job is terminal and returns its report or error.
func (f *Future) Wait() (schema.Report, error) {
	<-f.done
	return f.outcome.Report, f.outcome.Err
}

// Outcome blocks until the job is terminal and returns the full outcome.
func (f *Future) Outcome() Outcome {
	<-f.done
	return f.outcome
}

func (f *Future) settle(o Outcome) {
	f.outcome = o
	close(f.done)
}

// Counts summarizes the terminal states of every submitted job.
type Counts struct {
	Submitted int
	Succeeded int
	Failed    int
	Cancelled int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRetries sets how many additional analyzer attempts a failing job gets.
func WithRetries(n int) SchedulerOption {
	return func(s *Scheduler) { s.retries = max(0, n) }
}

// WithRetryInterval sets the initial backoff delay between attempts.
func WithRetryInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.retryInterval = d }
}

// WithJobTimeout bounds every analyzer attempt. Zero means no timeout.
func WithJobTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.timeout = d }
}

// WithOnComplete sets the callback that runs in the worker after a job
// finishes and before its future settles. It is not called for cancelled jobs.
func WithOnComplete(fn func(Outcome)) SchedulerOption {
	return func(s *Scheduler) { s.onComplete = fn }
}

// Scheduler runs jobs on a bounded pool. Submission never blocks: jobs wait
// in an unbounded FIFO queue for one of the worker slots.
type Scheduler struct {
	ctx       context.Context    // running jobs observe this
	queueCtx  context.Context    // queued jobs observe this
	stopQueue context.CancelFunc // cancels jobs that have not started

	sem     *semaphore.Weighted
	workers int

	retries       int
	retryInterval time.Duration
	timeout       time.Duration
	onComplete    func(Outcome)

	mu      sync.Mutex
	stopped bool
	futures []*Future
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler allowing at most workers concurrent jobs.
func NewScheduler(ctx context.Context, workers int, opts ...SchedulerOption) *Scheduler {
	workers = max(1, workers)
	queueCtx, stopQueue := context.WithCancel(ctx)
	s := &Scheduler{
		ctx:           ctx,
		queueCtx:      queueCtx,
		stopQueue:     stopQueue,
		sem:           semaphore.NewWeighted(int64(workers)),
		workers:       workers,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Submit queues a job and returns its future. After Stop, the returned
// future is already settled with contract.ErrCancelled.
func (s *Scheduler) Submit(job schema.Job, task Task) *Future {
	f := &Future{done: make(chan struct{})}

	s.mu.Lock()
	s.futures = append(s.futures, f)
	if s.stopped {
		s.mu.Unlock()
		f.settle(Outcome{Job: job, Err: contract.ErrCancelled})
		return f
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(job, task, f)
	return f
}

// Stop stops accepting jobs and cancels every job still waiting for a
// worker. Running jobs are left to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopQueue()
}

// AwaitAll blocks until every submitted job is terminal. It is the join
// barrier that must precede the summary pass.
func (s *Scheduler) AwaitAll() Counts {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Counts{Submitted: len(s.futures)}
	for _, f := range s.futures {
		o := f.Outcome()
		switch {
		case o.Err == nil:
			c.Succeeded++
		case o.Cancelled():
			c.Cancelled++
		default:
			c.Failed++
		}
	}
	return c
}

func (s *Scheduler) run(job schema.Job, task Task, f *Future) {
	defer s.wg.Done()

	// --- 1. Wait for a worker slot ---
	if err := s.sem.Acquire(s.queueCtx, 1); err != nil {
		f.settle(Outcome{Job: job, Err: contract.ErrCancelled})
		return
	}
	defer s.sem.Release(1)

	// --- 2. Run with retries ---
	start := time.Now()
	report, attempts, err := s.execute(job, task)
	outcome := Outcome{
		Job:      job,
		Report:   report,
		Err:      err,
		Attempts: attempts,
		Duration: time.Since(start),
	}

	// --- 3. Merge, then settle ---
	if s.onComplete != nil {
		s.onComplete(outcome)
	}
	f.settle(outcome)
}

// execute runs the task until it succeeds, the retries are exhausted or the
// run context ends.
func (s *Scheduler) execute(job schema.Job, task Task) (schema.Report, int, error) {
	attempts := 0
	operation := func() (schema.Report, error) {
		attempts++
		ctx := withAttempt(s.ctx, attempts)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		report, err := safeCall(ctx, job, task)
		if err != nil && s.ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return report, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.retries)), s.ctx)

	notify := func(err error, wait time.Duration) {
		contract.Logger().Warn("Analyzer attempt failed, retrying",
			zap.String("job", job.Title),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	report, err := backoff.RetryNotifyWithData(operation, policy, notify)
	return report, attempts, err
}

// safeCall converts an analyzer panic into a job error.
func safeCall(ctx context.Context, job schema.Job, task Task) (report schema.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panicked on %s: %v", job.SourceDir, r)
		}
	}()
	return task(ctx, job)
}
