package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the store operations used by the scheduler
type SchedulerRepository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, queue, key string) (*Job, error)
}

// Scheduler turns periodic task definitions into jobs. The task name is used
// as both job type and job key, so at most one run per task is ever pending
// even with several schedulers running.
type Scheduler struct {
	repo     SchedulerRepository
	tasks    map[string]*scheduledTask
	mu       sync.RWMutex
	interval time.Duration
	logger   *slog.Logger
}

type scheduledTask struct {
	name            string
	schedule        Schedule
	queue           string
	maxAttempts     int
	lastScheduledAt *time.Time
}

// NewScheduler creates a new periodic job scheduler
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		tasks:    make(map[string]*scheduledTask),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task. Its handler is registered on the worker
// with NewPeriodicHandler under the same name.
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...TaskOption) error {
	if name == "" || !validSchedule(schedule) {
		return ErrInvalidSchedule
	}

	taskOpts := &taskOptions{
		queue:       DefaultQueueName,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(taskOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &scheduledTask{
		name:        name,
		schedule:    schedule,
		queue:       taskOpts.queue,
		maxAttempts: taskOpts.maxAttempts,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("queue", taskOpts.queue),
		slog.String("schedule", schedule.String()))

	return nil
}

// Start checks tasks immediately and then on every interval until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	taskCount := len(s.tasks)
	s.mu.RUnlock()

	if taskCount == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkTasks(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.checkTasks(ctx)
		}
	}
}

// Run returns a function suitable for errgroup. Context cancellation is not
// reported as an error.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (s *Scheduler) checkTasks(ctx context.Context) {
	s.mu.RLock()
	tasks := make([]*scheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, task := range tasks {
		if err := s.scheduleTaskIfNeeded(ctx, task, now); err != nil {
			s.logger.Error("failed to schedule periodic task",
				slog.String("task_name", task.name),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) scheduleTaskIfNeeded(ctx context.Context, task *scheduledTask, now time.Time) error {
	s.mu.RLock()
	last := task.lastScheduledAt
	s.mu.RUnlock()

	var nextRun time.Time
	if last == nil {
		nextRun = task.schedule.Next(now)
	} else {
		nextRun = task.schedule.Next(*last)
		if nextRun.After(now) {
			return nil
		}
		// Collapse runs missed while nothing was checking into one
		for {
			following := task.schedule.Next(nextRun)
			if following.After(now) {
				break
			}
			nextRun = following
		}
	}

	existing, err := s.repo.GetJob(ctx, task.queue, task.name)
	if err == nil && existing != nil {
		s.setLastScheduled(task.name, existing.RunAt)
		s.logger.Debug("periodic task already pending",
			slog.String("task_name", task.name),
			slog.Time("scheduled_for", existing.RunAt))
		return nil
	}
	if err != nil && !errors.Is(err, ErrJobNotFound) {
		return fmt.Errorf("check pending periodic job: %w", err)
	}

	if err := s.createJob(ctx, task, nextRun); err != nil {
		if errors.Is(err, ErrDuplicateJobKey) {
			// Another scheduler instance won the race
			s.setLastScheduled(task.name, nextRun)
			return nil
		}
		return fmt.Errorf("create periodic job: %w", err)
	}

	s.setLastScheduled(task.name, nextRun)
	s.logger.Info("created periodic job",
		slog.String("task_name", task.name),
		slog.Time("scheduled_for", nextRun))

	return nil
}

func (s *Scheduler) setLastScheduled(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[name]; ok {
		t.lastScheduledAt = &at
	}
}

func (s *Scheduler) createJob(ctx context.Context, task *scheduledTask, runAt time.Time) error {
	payload, err := json.Marshal(periodicPayload(task.name))
	if err != nil {
		return err
	}

	now := time.Now()
	return s.repo.CreateJob(ctx, &Job{
		ID:          uuid.New(),
		Queue:       task.queue,
		Key:         task.name,
		Type:        task.name,
		Payload:     payload,
		Status:      JobStatusWaiting,
		MaxAttempts: task.maxAttempts,
		Backoff:     DefaultBackoff(),
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// RemoveTask unregisters a periodic task. An already pending run is kept.
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, name)

	s.logger.Info("removed periodic task",
		slog.String("task_name", name))
}

// ListTasks returns the names of all registered periodic tasks
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}
