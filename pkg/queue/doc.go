// Package queue provides a delayed, retryable job queue with at-least-once
// execution.
//
// The package is organised around three components that only meet through
// small repository interfaces:
//
//   - Enqueuer  adds, replaces and removes jobs by key
//   - Worker    claims due jobs of one queue and runs the registered Handler
//   - Scheduler turns periodic task definitions into jobs
//
// MemoryStorage backs tests and local development. RedisStorage keeps jobs in
// sorted sets scored by run time, and each state transition is one Lua script,
// so a job is claimed by at most one worker at a time.
//
// # Keys
//
// Every job has a key, unique per queue among non-terminal jobs. Creating a job
// over a live key fails with ErrDuplicateJobKey; callers reschedule by removing
// the waiting job first (see Enqueuer.EnqueueReplacing). Active jobs cannot be
// removed.
//
// # Retries
//
// Handlers classify failures with Retryable and Terminal. Unclassified errors
// and panics are retried with exponential backoff until MaxAttempts is reached;
// terminal errors and unknown job types fail the job immediately. Failed jobs
// are kept on a dead list per queue.
//
// # Usage
//
//	type Welcome struct {
//		UserID string `json:"userId"`
//	}
//
//	func (Welcome) JobType() string { return "welcome" }
//
//	store := queue.NewMemoryStorage()
//	enq, _ := queue.NewEnqueuer(store)
//
//	_, err := enq.Enqueue(ctx, Welcome{UserID: "u1"},
//		queue.WithQueue("emails"),
//		queue.WithJobKey("welcome:u1"),
//		queue.WithDelay(time.Minute),
//	)
//
//	w, _ := queue.NewWorker(store,
//		queue.WithWorkerQueue("emails"),
//		queue.WithConcurrency(4),
//		queue.WithRateLimit(10, time.Second),
//	)
//	_ = w.RegisterHandler(queue.NewHandler(func(ctx context.Context, p Welcome) error {
//		return send(ctx, p.UserID)
//	}))
//
//	g.Go(w.Run(ctx))
package queue
