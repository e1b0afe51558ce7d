package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/ratelimiter"
)

func TestNewBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   ratelimiter.Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second},
		},
		{
			name:     "zero capacity",
			config:   ratelimiter.Config{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
			errorMsg: "capacity must be positive",
		},
		{
			name:     "zero refill rate",
			config:   ratelimiter.Config{Capacity: 10, RefillRate: 0, RefillInterval: time.Second},
			errorMsg: "refill rate must be positive",
		},
		{
			name:     "zero refill interval",
			config:   ratelimiter.Config{Capacity: 10, RefillRate: 1},
			errorMsg: "refill interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
			b, err := ratelimiter.NewBucket(store, tt.config)
			if tt.errorMsg != "" {
				require.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, b)
		})
	}
}

func TestBucket_DeniedRequestsDoNotConsume(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	defer store.Close()

	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	for range 2 {
		res, err := b.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	}

	for range 5 {
		res, err := b.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, -1, res.Remaining)
		assert.Greater(t, res.RetryAfter(), time.Duration(0))
	}

	status, err := b.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining)
}

func TestBucket_Refill(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	defer store.Close()

	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, res.Allowed())

	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed())

	time.Sleep(30 * time.Millisecond)

	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucket_AllowNValidation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	defer store.Close()

	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	_, err = b.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	_, err = b.AllowN(context.Background(), "k", 4)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("waits for refill", func(t *testing.T) {
		t.Parallel()

		store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
		defer store.Close()

		b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: 30 * time.Millisecond})
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, ratelimiter.Wait(ctx, b, "k"))

		start := time.Now()
		require.NoError(t, ratelimiter.Wait(ctx, b, "k"))
		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	})

	t.Run("honours context", func(t *testing.T) {
		t.Parallel()

		store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
		defer store.Close()

		b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
		require.NoError(t, err)

		require.NoError(t, ratelimiter.Wait(context.Background(), b, "k"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, ratelimiter.Wait(ctx, b, "k"), context.DeadlineExceeded)
	})
}
