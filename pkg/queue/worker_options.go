package queue

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/ratelimiter"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	queue           string
	pullInterval    time.Duration
	lockTimeout     time.Duration
	jobTimeout      time.Duration
	shutdownTimeout time.Duration
	concurrency     int
	limiter         ratelimiter.RateLimiter
	limiterKey      string
	rateLimitStore  ratelimiter.WindowStore
	rateMax         int
	rateWindow      time.Duration
	metrics         *Metrics
	logger          *slog.Logger
}

// WithWorkerQueue sets which queue the worker pulls from
func WithWorkerQueue(queue string) WorkerOption {
	return func(o *workerOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithPullInterval sets how often an idle worker checks for new jobs
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets how long a claimed job stays invisible to other workers.
// A worker that crashes loses its jobs back to the waiting set after this long.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithJobTimeout bounds a single handler execution. Defaults to the lock timeout.
func WithJobTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for running handlers.
// Zero waits without limit.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d >= 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithConcurrency sets the maximum number of jobs executed at once
func WithConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRateLimit starts at most max jobs in any rolling window. The limit is
// kept in process unless WithRateLimitStore shares it.
func WithRateLimit(max int, window time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if max > 0 && window > 0 {
			o.rateMax, o.rateWindow = max, window
		}
	}
}

// WithRateLimitStore sets the store backing WithRateLimit, e.g. ratelimiter.RedisStore.
func WithRateLimitStore(store ratelimiter.WindowStore) WorkerOption {
	return func(o *workerOptions) {
		if store != nil {
			o.rateLimitStore = store
		}
	}
}

// WithRateLimiter sets a ready-made limiter. key defaults to the queue name.
func WithRateLimiter(limiter ratelimiter.RateLimiter, key string) WorkerOption {
	return func(o *workerOptions) {
		if limiter != nil {
			o.limiter = limiter
			o.limiterKey = key
		}
	}
}

// WithMetrics records job outcomes into m
func WithMetrics(m *Metrics) WorkerOption {
	return func(o *workerOptions) {
		o.metrics = m
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
