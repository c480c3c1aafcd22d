package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
)

// RetryConfig configures retry behavior for failed jobs. Retries use a fixed
// delay rather than exponential backoff: the only retried failures are
// transient store outages, and hammering a recovering store faster buys
// nothing.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	Delay      time.Duration // Fixed delay before each retry
}

// DefaultRetryConfig returns the stock retry policy: 5 attempts, 10 minutes
// apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		Delay:      10 * time.Minute,
	}
}

// queueCapacity bounds the pending-job buffer. Enqueue fails rather than
// blocks when the buffer is full.
const queueCapacity = 1024

// Queue runs tasks on a fixed pool of workers and records per-job state in a
// JobStore. A job either succeeds, fails terminally, or exhausts its retries;
// there is no cancellation path for a job already claimed by a worker.
type Queue struct {
	store       JobStore
	retryConfig RetryConfig

	jobs chan *job

	mu     sync.Mutex
	closed bool

	// wg tracks worker goroutines
	wg sync.WaitGroup

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// job is one queue entry. attempt counts completed executions.
type job struct {
	id      uuid.UUID
	task    Task
	attempt int
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(config RetryConfig) QueueOption {
	return func(q *Queue) {
		q.retryConfig = config
	}
}

// New creates a queue backed by store and starts workers goroutines.
func New(store JobStore, workers int, logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:       store,
		retryConfig: DefaultRetryConfig(),
		jobs:        make(chan *job, queueCapacity),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("dispatch"),
	}

	for _, opt := range opts {
		opt(q)
	}

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	return q
}

// Enqueue submits a task and returns its job handle immediately. The handle
// can be used with Status for the job's lifetime.
func (q *Queue) Enqueue(task Task) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return uuid.Nil, errors.New("queue closed")
	}

	id := uuid.New()
	q.setState(JobSnapshot{ID: id, Status: JobPending})

	select {
	case q.jobs <- &job{id: id, task: task}:
	default:
		q.setState(JobSnapshot{ID: id, Status: JobFailed, Error: "queue saturated"})
		return uuid.Nil, fmt.Errorf("queue saturated (%d pending jobs)", queueCapacity)
	}

	q.logger.Info("job enqueued",
		zap.String("job_id", id.String()),
		zap.String("task_name", task.Name()))

	return id, nil
}

// Status returns the job's current state. It is a side-effect-free read.
func (q *Queue) Status(ctx context.Context, id uuid.UUID) (JobSnapshot, error) {
	return q.store.Get(ctx, id)
}

// Close stops accepting work, signals running tasks to stop and waits for the
// workers to exit. Jobs waiting on a retry delay are abandoned; their stored
// state stays pending, which the client can observe and re-trigger.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	close(q.jobs)
	q.wg.Wait()
}

// worker claims jobs until the queue closes.
func (q *Queue) worker() {
	defer q.wg.Done()

	for j := range q.jobs {
		q.run(j)
	}
}

// run executes one claimed job and settles its outcome: success, terminal
// failure, or a scheduled retry.
func (q *Queue) run(j *job) {
	q.setState(JobSnapshot{ID: j.id, Status: JobRunning, Attempts: j.attempt})

	q.logger.Info("job started",
		zap.String("job_id", j.id.String()),
		zap.String("task_name", j.task.Name()),
		zap.Int("attempt", j.attempt))

	err := j.task.Execute(q.ctx)
	j.attempt++

	if err == nil {
		q.setState(JobSnapshot{ID: j.id, Status: JobSucceeded, Attempts: j.attempt})
		q.logger.Info("job succeeded",
			zap.String("job_id", j.id.String()),
			zap.String("task_name", j.task.Name()),
			zap.Int("attempts", j.attempt))
		return
	}

	if errors.Is(err, context.Canceled) {
		q.setState(JobSnapshot{ID: j.id, Status: JobFailed, Attempts: j.attempt, Error: err.Error()})
		return
	}

	if !apperrors.IsTransient(err) {
		q.logger.Warn("non-retryable error, failing job",
			zap.String("job_id", j.id.String()),
			zap.String("task_name", j.task.Name()),
			zap.Error(err))
		q.setState(JobSnapshot{ID: j.id, Status: JobFailed, Attempts: j.attempt, Error: err.Error()})
		return
	}

	if j.attempt > q.retryConfig.MaxRetries {
		q.logger.Error("job failed after max retries",
			zap.String("job_id", j.id.String()),
			zap.String("task_name", j.task.Name()),
			zap.Int("attempts", j.attempt),
			zap.Error(err))
		q.setState(JobSnapshot{ID: j.id, Status: JobFailed, Attempts: j.attempt, Error: err.Error()})
		return
	}

	q.logger.Warn("transient error, scheduling retry",
		zap.String("job_id", j.id.String()),
		zap.String("task_name", j.task.Name()),
		zap.Int("attempt", j.attempt),
		zap.Int("max_retries", q.retryConfig.MaxRetries),
		zap.Duration("delay", q.retryConfig.Delay),
		zap.Error(err))

	q.setState(JobSnapshot{ID: j.id, Status: JobPending, Attempts: j.attempt, Error: err.Error()})
	q.scheduleRetry(j)
}

// scheduleRetry requeues j after the fixed delay, unless the queue shuts down
// first.
func (q *Queue) scheduleRetry(j *job) {
	timer := time.AfterFunc(q.retryConfig.Delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.closed {
			return
		}
		select {
		case q.jobs <- j:
		default:
			q.setState(JobSnapshot{ID: j.id, Status: JobFailed, Attempts: j.attempt, Error: "queue saturated"})
		}
	})

	// Stop the timer on shutdown so the process does not linger.
	go func() {
		<-q.ctx.Done()
		timer.Stop()
	}()
}

// setState writes job state to the store. Store failures are logged, not
// propagated: the job outcome itself is not affected by a status bookkeeping
// miss.
func (q *Queue) setState(snap JobSnapshot) {
	if err := q.store.Set(context.Background(), snap); err != nil {
		q.logger.Error("failed to record job state",
			zap.String("job_id", snap.ID.String()),
			zap.String("status", string(snap.Status)),
			zap.Error(err))
	}
}
