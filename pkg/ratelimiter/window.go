package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// WindowStore records admissions for a sliding window limiter.
type WindowStore interface {
	// Admit records n admissions at now when at most limit admissions fall in
	// the window ending at now, counting the new ones. Otherwise nothing is
	// recorded, remaining is negative and retryAt is when enough of the
	// oldest admissions leave the window.
	Admit(ctx context.Context, key string, n, limit int, window time.Duration) (remaining int, retryAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// Window admits at most Limit operations in any rolling window of the given
// length. Unlike Bucket it has no burst on top of the steady rate.
type Window struct {
	store  WindowStore
	limit  int
	window time.Duration
}

// NewWindow creates a sliding window limiter of limit operations per window.
func NewWindow(store WindowStore, limit int, window time.Duration) (*Window, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, window)
	}
	return &Window{store: store, limit: limit, window: window}, nil
}

func (w *Window) Allow(ctx context.Context, key string) (*Result, error) {
	return w.AllowN(ctx, key, 1)
}

func (w *Window) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	if n > w.limit {
		return nil, fmt.Errorf("%w: %d exceeds limit %d", ErrInvalidTokenCount, n, w.limit)
	}

	remaining, retryAt, err := w.store.Admit(ctx, key, n, w.limit, w.window)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: w.limit, Remaining: remaining, ResetAt: retryAt}, nil
}

func (w *Window) Reset(ctx context.Context, key string) error {
	return w.store.Reset(ctx, key)
}
