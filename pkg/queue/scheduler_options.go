package queue

import (
	"log/slog"
	"time"
)

// SchedulerOption is a functional option for configuring a scheduler
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	logger        *slog.Logger
}

// WithCheckInterval sets how often scheduler checks for due jobs
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerLogger sets the logger for the scheduler
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// TaskOption is a functional option for configuring a periodic task
type TaskOption func(*taskOptions)

type taskOptions struct {
	queue       string
	maxAttempts int
}

// WithTaskQueue sets the queue the periodic job is enqueued to
func WithTaskQueue(queue string) TaskOption {
	return func(o *taskOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithTaskMaxAttempts sets the attempt limit of each periodic run (1-10).
// A missed run is superseded by the next one, so retries stay short.
func WithTaskMaxAttempts(n int) TaskOption {
	return func(o *taskOptions) {
		if n >= 1 && n <= 10 {
			o.maxAttempts = n
		}
	}
}
