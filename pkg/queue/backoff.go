package queue

import (
	"math"
	"time"
)

// Default retry policy applied by the Enqueuer
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 30 * time.Second
	DefaultBackoffMax  = 30 * time.Minute
)

// Backoff is an exponential retry policy: Base * 2^(attempt-1), capped at Max.
type Backoff struct {
	Base time.Duration `json:"base"`
	Max  time.Duration `json:"max,omitempty"`
}

// DefaultBackoff returns the policy used when a job does not set its own.
func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultBackoffBase, Max: DefaultBackoffMax}
}

// Next returns the delay before the given retry attempt. Attempt starts at 1.
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := b.Base
	if base <= 0 {
		base = DefaultBackoffBase
	}

	limit := b.Max
	if limit <= 0 {
		limit = DefaultBackoffMax
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(limit) {
		return limit
	}
	return time.Duration(delay)
}
