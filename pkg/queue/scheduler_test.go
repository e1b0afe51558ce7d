package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/queue"
)

func TestScheduler_AddTask(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(queue.NewMemoryStorage(), queue.WithSchedulerLogger(discardLogger()))
	require.NoError(t, err)

	require.NoError(t, s.AddTask("sweep", queue.Every(time.Minute)))
	assert.ErrorIs(t, s.AddTask("sweep", queue.Every(time.Minute)), queue.ErrTaskAlreadyRegistered)
	assert.ErrorIs(t, s.AddTask("bad", queue.Every(0)), queue.ErrInvalidSchedule)
	assert.ErrorIs(t, s.AddTask("bad", queue.DailyAt(25, 0)), queue.ErrInvalidSchedule)
	assert.ErrorIs(t, s.AddTask("", queue.Every(time.Minute)), queue.ErrInvalidSchedule)

	assert.ElementsMatch(t, []string{"sweep"}, s.ListTasks())
	s.RemoveTask("sweep")
	assert.Empty(t, s.ListTasks())
}

func TestScheduler_NilRepository(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(nil)
	assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	assert.Nil(t, s)
}

func TestScheduler_StartWithoutTasks(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(queue.NewMemoryStorage())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Start(context.Background()), queue.ErrSchedulerNotConfigured)
}

func TestScheduler_EnqueuesOnePendingRun(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	s, err := queue.NewScheduler(storage,
		queue.WithCheckInterval(5*time.Millisecond),
		queue.WithSchedulerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, s.AddTask("sweep", queue.Every(time.Hour), queue.WithTaskQueue("orders")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		_, err := storage.GetJob(ctx, "orders", "sweep")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	stats, err := storage.Stats(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Waiting)

	job, err := storage.GetJob(context.Background(), "orders", "sweep")
	require.NoError(t, err)
	assert.Equal(t, "sweep", job.Type)
	assert.WithinDuration(t, time.Now().Add(time.Hour), job.RunAt, time.Second)
}

func TestScheduler_PeriodicHandlerRuns(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	s, err := queue.NewScheduler(storage,
		queue.WithCheckInterval(5*time.Millisecond),
		queue.WithSchedulerLogger(discardLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, s.AddTask("tick", queue.Every(10*time.Millisecond)))

	var runs atomic.Int32
	w := newTestWorker(t, storage)
	require.NoError(t, w.RegisterHandler(queue.NewPeriodicHandler("tick", func(context.Context) error {
		runs.Add(1)
		return nil
	})))
	startWorker(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx)() }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RunIgnoresCancellation(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(queue.NewMemoryStorage(), queue.WithSchedulerLogger(discardLogger()))
	require.NoError(t, err)
	require.NoError(t, s.AddTask("t", queue.Every(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx)()
	assert.False(t, errors.Is(err, context.Canceled))
	assert.NoError(t, err)
}
