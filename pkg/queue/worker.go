package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/shopflow/pkg/ratelimiter"
)

// WorkerRepository defines the store operations used by a worker
type WorkerRepository interface {
	// ClaimJob atomically moves the next due waiting job of queue to active.
	// Returns ErrNoJobToClaim when nothing is due.
	ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error)

	// CompleteJob marks an active job completed and frees its key
	CompleteJob(ctx context.Context, job *Job) error

	// RetryJob moves an active job back to waiting, eligible at runAt.
	// job.Attempts is persisted as given.
	RetryJob(ctx context.Context, job *Job, runAt time.Time, errorMsg string) error

	// FailJob marks an active job terminally failed (dead) and frees its key
	FailJob(ctx context.Context, job *Job, errorMsg string) error

	// ExtendLock pushes the lock of an active job forward
	ExtendLock(ctx context.Context, job *Job, duration time.Duration) error
}

// storeOpTimeout bounds bookkeeping calls made after a handler returns.
// They run on a detached context so that shutdown does not lose outcomes.
const storeOpTimeout = 10 * time.Second

// Worker runs handlers for the jobs of one queue with bounded concurrency
// and an optional rate limit.
type Worker struct {
	repo       WorkerRepository
	handlers   map[string]Handler
	queue      string
	workerID   uuid.UUID
	sem        chan struct{}
	wake       chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	stopMu     sync.Mutex // Protects stopping state and WaitGroup operations
	limiter    ratelimiter.RateLimiter
	limiterKey string

	pullInterval    time.Duration
	lockTimeout     time.Duration
	jobTimeout      time.Duration
	shutdownTimeout time.Duration
	metrics         *Metrics
	logger          *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queue:        DefaultQueueName,
		pullInterval:    time.Second,
		lockTimeout:     5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		concurrency:     1,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.jobTimeout <= 0 || options.jobTimeout > options.lockTimeout {
		options.jobTimeout = options.lockTimeout
	}

	limiter, limiterKey := options.limiter, options.limiterKey
	if limiter == nil && options.rateMax > 0 {
		store := options.rateLimitStore
		if store == nil {
			store = ratelimiter.NewMemoryStore()
		}
		window, err := ratelimiter.NewWindow(store, options.rateMax, options.rateWindow)
		if err != nil {
			return nil, fmt.Errorf("worker rate limit: %w", err)
		}
		limiter = window
	}
	if limiterKey == "" {
		limiterKey = "queue:" + options.queue
	}

	return &Worker{
		repo:            repo,
		handlers:        make(map[string]Handler),
		queue:           options.queue,
		workerID:        uuid.New(),
		sem:             make(chan struct{}, options.concurrency),
		wake:            make(chan struct{}, 1),
		limiter:         limiter,
		limiterKey:      limiterKey,
		pullInterval:    options.pullInterval,
		lockTimeout:     options.lockTimeout,
		jobTimeout:      options.jobTimeout,
		shutdownTimeout: options.shutdownTimeout,
		metrics:         options.metrics,
		logger:          options.logger,
	}, nil
}

// Queue returns the name of the queue the worker pulls from
func (w *Worker) Queue() string {
	return w.queue
}

// RegisterHandler registers a single job handler
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.JobType()] = handler
	return nil
}

// RegisterHandlers registers multiple job handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue),
		slog.Int("concurrency", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker. Jobs still waiting for a rate limit
// token go back to the queue; running handlers get up to the shutdown timeout
// to finish. After that Stop returns ErrShutdownTimeout and the remaining
// jobs are recovered through lock expiry if the process exits.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue))

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	if w.shutdownTimeout > 0 {
		timer := time.NewTimer(w.shutdownTimeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			w.logger.Warn("worker shutdown timed out with jobs still running",
				slog.String("worker_id", w.workerID.String()),
				slog.String("queue", w.queue),
				slog.Duration("timeout", w.shutdownTimeout))
			return ErrShutdownTimeout
		}
	} else {
		<-done
	}

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		w.fill()

		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// fill claims jobs until every slot is busy or nothing is due
func (w *Worker) fill() {
	ctx := w.ctx
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		w.stopMu.Lock()
		if w.stopping.Load() {
			w.stopMu.Unlock()
			<-w.sem
			return
		}
		w.wg.Add(1)
		w.stopMu.Unlock()

		job, err := w.repo.ClaimJob(ctx, w.workerID, w.queue, w.lockTimeout)
		if err != nil || job == nil {
			<-w.sem
			w.wg.Done()
			if err != nil && !errors.Is(err, ErrNoJobToClaim) && !errors.Is(err, context.Canceled) {
				w.logger.Error("failed to claim job",
					slog.String("worker_id", w.workerID.String()),
					slog.String("queue", w.queue),
					slog.String("error", err.Error()))
			}
			return
		}

		go func() {
			defer w.wg.Done()
			defer w.release()
			w.process(ctx, job)
		}()
	}
}

func (w *Worker) release() {
	<-w.sem
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// process runs one claimed job. ctx is the worker lifecycle context; it
// only interrupts the rate limit wait, never a running handler.
func (w *Worker) process(ctx context.Context, job *Job) {
	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.Type),
		slog.String("job_key", job.Key),
		slog.String("queue", job.Queue))

	if w.limiter != nil {
		if err := w.waitForToken(ctx, job); err != nil {
			w.giveBack(job, err)
			return
		}
	}

	start := time.Now()

	// Not tied to the worker lifecycle so that shutdown lets jobs finish
	jobCtx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	err := w.execute(jobCtx, job)
	w.settle(job, err, time.Since(start))
}

func (w *Worker) waitForToken(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	started := time.Now()
	if err := ratelimiter.Wait(ctx, w.limiter, w.limiterKey); err != nil {
		return err
	}

	// The wait ate into the lock; renew it before the handler starts
	if waited := time.Since(started); waited > w.pullInterval {
		opCtx, opCancel := context.WithTimeout(context.Background(), storeOpTimeout)
		defer opCancel()
		if err := w.repo.ExtendLock(opCtx, job, w.lockTimeout); err != nil {
			return fmt.Errorf("extend lock after rate limit wait: %w", err)
		}
	}
	return nil
}

// giveBack returns a job that never ran without charging an attempt
func (w *Worker) giveBack(job *Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	runAt := time.Now().Add(w.pullInterval)
	if errors.Is(cause, context.Canceled) {
		runAt = time.Now()
		w.logger.Info("worker stopping, returning job to queue",
			slog.String("job_id", job.ID.String()),
			slog.String("queue", job.Queue))
	} else {
		w.logger.Warn("rate limiter unavailable, returning job to queue",
			slog.String("job_id", job.ID.String()),
			slog.String("queue", job.Queue),
			slog.String("error", cause.Error()))
	}

	if err := w.repo.RetryJob(ctx, job, runAt, cause.Error()); err != nil {
		w.logger.Error("failed to return job to queue",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (w *Worker) execute(ctx context.Context, job *Job) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = Retryable(fmt.Errorf("panic in handler: %v", r))
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.String("job_type", job.Type),
				slog.Any("panic", r))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	if !ok {
		// No point in retrying without a handler
		return Terminal(fmt.Errorf("%w: %s", ErrHandlerNotFound, job.Type))
	}

	return handler.Handle(ctx, job.Payload)
}

// settle records the handler outcome: success completes the job, a terminal
// error or exhausted attempts kill it, anything else is retried with backoff.
func (w *Worker) settle(job *Job, execErr error, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	w.metrics.observeDuration(job.Queue, job.Type, duration)

	if execErr == nil {
		if err := w.repo.CompleteJob(ctx, job); err != nil {
			w.logger.Error("failed to mark job completed",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()))
			return
		}
		w.metrics.incCompleted(job.Queue, job.Type)
		w.logger.Info("job completed",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("job_type", job.Type),
			slog.String("job_key", job.Key),
			slog.String("queue", job.Queue),
			slog.Duration("duration", duration))
		return
	}

	retryable := IsRetryable(execErr)
	exhausted := job.Exhausted()
	job.Attempts++

	if !retryable || exhausted {
		if err := w.repo.FailJob(ctx, job, execErr.Error()); err != nil {
			w.logger.Error("failed to mark job dead",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()))
			return
		}
		w.metrics.incDead(job.Queue, job.Type)
		w.logger.Warn("job failed permanently",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("job_type", job.Type),
			slog.String("job_key", job.Key),
			slog.String("queue", job.Queue),
			slog.Int("attempts", job.Attempts),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Bool("retryable", retryable),
			slog.String("error", execErr.Error()))
		return
	}

	delay := job.Backoff.Next(job.Attempts)
	if err := w.repo.RetryJob(ctx, job, time.Now().Add(delay), execErr.Error()); err != nil {
		w.logger.Error("failed to schedule job retry",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	w.metrics.incRetried(job.Queue, job.Type)
	w.logger.Error("job failed, retry scheduled",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.Type),
		slog.String("job_key", job.Key),
		slog.String("queue", job.Queue),
		slog.Int("attempts", job.Attempts),
		slog.Int("max_attempts", job.MaxAttempts),
		slog.Duration("retry_in", delay),
		slog.String("error", execErr.Error()))
}

// ExtendLockForJob extends the lock of a long-running job
func (w *Worker) ExtendLockForJob(ctx context.Context, job *Job, extension time.Duration) error {
	return w.repo.ExtendLock(ctx, job, extension)
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
