package queue

import "time"

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultQueue string
	maxAttempts  int
	backoff      Backoff
	now          func() time.Time
}

// WithDefaultQueue sets the default queue name
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if queue != "" {
			o.defaultQueue = queue
		}
	}
}

// WithDefaultMaxAttempts sets the attempts budget for jobs that do not set one
func WithDefaultMaxAttempts(n int) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithDefaultBackoff sets the retry policy for jobs that do not set one
func WithDefaultBackoff(b Backoff) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if b.Base > 0 {
			o.backoff = b
		}
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue       string
	key         string
	maxAttempts int
	backoff     Backoff
	delay       time.Duration
	runAt       *time.Time
}

// WithQueue sets the queue for the job
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithJobKey sets the idempotent key of the job, e.g. the id of the entity it works on
func WithJobKey(key string) EnqueueOption {
	return func(o *enqueueOptions) {
		o.key = key
	}
}

// WithMaxAttempts sets the maximum number of executions (1-25)
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 && n <= 25 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the retry policy for the job
func WithBackoff(b Backoff) EnqueueOption {
	return func(o *enqueueOptions) {
		if b.Base > 0 {
			o.backoff = b
		}
	}
}

// WithDelay sets a delay before the job can be processed. Negative delays are ignored.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithRunAt sets a specific time for the job to be processed
func WithRunAt(runAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.runAt = &runAt
	}
}
