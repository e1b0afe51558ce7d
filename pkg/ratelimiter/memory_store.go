package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by cleanup to identify stale buckets
}

// ring holds the times of the last admissions of one key, oldest at head.
// Unused slots are zero and sort before any real admission.
type ring struct {
	times      []time.Time
	head       int
	lastAccess time.Time
}

// at returns the i-th oldest slot, zero based.
func (r *ring) at(i int) time.Time {
	return r.times[(r.head+i)%len(r.times)]
}

func (r *ring) push(t time.Time) {
	r.times[r.head] = t
	r.head = (r.head + 1) % len(r.times)
}

// resize keeps the newest admissions when the limit of a key changes.
func (r *ring) resize(limit int) {
	if len(r.times) == limit {
		return
	}
	kept := make([]time.Time, 0, len(r.times))
	for i := range len(r.times) {
		if t := r.at(i); !t.IsZero() {
			kept = append(kept, t)
		}
	}
	kept = kept[max(len(kept)-limit, 0):]

	times := make([]time.Time, limit)
	copy(times[limit-len(kept):], kept)
	r.times, r.head = times, 0
}

// MemoryStore implements Store and WindowStore for a single process.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	windows map[string]*ring

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale buckets.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		windows:         make(map[string]*ring),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// ConsumeTokens implements Store.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	b, exists := ms.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     config.Capacity,
			lastRefill: now,
		}
		ms.buckets[key] = b
	}
	b.lastAccess = now

	// Advance lastRefill by whole intervals only so partial progress is kept
	intervals := int64(now.Sub(b.lastRefill) / config.RefillInterval)
	if intervals > 0 {
		maxIntervals := int64(config.Capacity/config.RefillRate + 1)
		added := min(intervals, maxIntervals) * int64(config.RefillRate)
		b.tokens = min(b.tokens+int(added), config.Capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * config.RefillInterval)
	}

	resetAt := b.lastRefill.Add(config.RefillInterval)

	if b.tokens < tokens {
		return b.tokens - tokens, resetAt, nil
	}

	b.tokens -= tokens
	return b.tokens, resetAt, nil
}

// Admit implements WindowStore.
func (ms *MemoryStore) Admit(_ context.Context, key string, n, limit int, window time.Duration) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	r, exists := ms.windows[key]
	if !exists {
		r = &ring{times: make([]time.Time, limit)}
		ms.windows[key] = r
	}
	r.resize(limit)
	r.lastAccess = now

	cutoff := now.Add(-window)
	inWindow := 0
	for _, t := range r.times {
		if t.After(cutoff) {
			inWindow++
		}
	}

	// Admitting n overwrites the n oldest slots; the n-th oldest must be
	// unused or already out of the window.
	if nth := r.at(n - 1); nth.After(cutoff) {
		return limit - inWindow - n, nth.Add(window), nil
	}

	for range n {
		r.push(now)
	}
	return limit - inWindow - n, now, nil
}

// Reset implements Store and WindowStore.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	delete(ms.windows, key)
	return nil
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > time.Hour {
			delete(ms.buckets, key)
		}
	}
	for key, r := range ms.windows {
		if now.Sub(r.lastAccess) > time.Hour {
			delete(ms.windows, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stopCleanup) })
}
