package queue_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/queue"
)

func newRedisStorage(t *testing.T) *queue.RedisStorage {
	t.Helper()

	url := os.Getenv("QUEUE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("QUEUE_TEST_REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(context.Background(), keys...).Err()
		}
	})

	storage, err := queue.NewRedisStorage(client, queue.WithKeyPrefix(prefix))
	require.NoError(t, err)
	return storage
}

func TestRedisStorage_Lifecycle(t *testing.T) {
	t.Parallel()

	storage := newRedisStorage(t)
	ctx := context.Background()

	job := newJob("orders", "order-1", time.Now().Add(-time.Second))
	require.NoError(t, storage.CreateJob(ctx, job))
	assert.ErrorIs(t, storage.CreateJob(ctx, newJob("orders", "order-1", time.Now())), queue.ErrDuplicateJobKey)

	got, err := storage.GetJob(ctx, "orders", "order-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, queue.JobStatusWaiting, got.Status)

	claimed, err := storage.ClaimJob(ctx, uuid.New(), "orders", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)

	_, err = storage.ClaimJob(ctx, uuid.New(), "orders", time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoJobToClaim)

	removed, err := storage.RemoveJob(ctx, "orders", "order-1")
	require.NoError(t, err)
	assert.False(t, removed, "active job must not be removable")

	claimed.Attempts = 1
	require.NoError(t, storage.RetryJob(ctx, claimed, time.Now().Add(-time.Millisecond), "timeout"))

	claimed, err = storage.ClaimJob(ctx, uuid.New(), "orders", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)

	require.NoError(t, storage.CompleteJob(ctx, claimed))
	assert.ErrorIs(t, storage.CompleteJob(ctx, claimed), queue.ErrJobNotActive)

	_, err = storage.GetJob(ctx, "orders", "order-1")
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
	require.NoError(t, storage.CreateJob(ctx, newJob("orders", "order-1", time.Now().Add(time.Hour))))
}

func TestRedisStorage_RemoveAndDead(t *testing.T) {
	t.Parallel()

	storage := newRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.CreateJob(ctx, newJob("posts", "p1", time.Now().Add(time.Hour))))
	removed, err := storage.RemoveJob(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = storage.RemoveJob(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, storage.CreateJob(ctx, newJob("posts", "p2", time.Now())))
	claimed, err := storage.ClaimJob(ctx, uuid.New(), "posts", time.Minute)
	require.NoError(t, err)
	require.NoError(t, storage.FailJob(ctx, claimed, "unsupported platform"))

	dead, err := storage.DeadJobs(ctx, "posts", 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, queue.JobStatusFailed, dead[0].Status)

	stats, err := storage.Stats(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, queue.QueueStats{Dead: 1}, stats)
}

func TestRedisStorage_ExpiredLock(t *testing.T) {
	t.Parallel()

	storage := newRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.CreateJob(ctx, newJob("q", "k", time.Now())))
	first, err := storage.ClaimJob(ctx, uuid.New(), "q", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	second, err := storage.ClaimJob(ctx, uuid.New(), "q", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// The worker whose lock expired no longer owns the job
	assert.ErrorIs(t, storage.ExtendLock(ctx, first, time.Minute), queue.ErrJobNotActive)
	assert.ErrorIs(t, storage.RetryJob(ctx, first, time.Now(), "late"), queue.ErrJobNotActive)
	assert.ErrorIs(t, storage.CompleteJob(ctx, first), queue.ErrJobNotActive)

	got, err := storage.GetJob(ctx, "q", "k")
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusActive, got.Status)

	require.NoError(t, storage.ExtendLock(ctx, second, time.Minute))
	require.NoError(t, storage.CompleteJob(ctx, second))
}
