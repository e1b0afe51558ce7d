package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the store operations behind the job queue client
type EnqueuerRepository interface {
	// CreateJob persists a waiting job. Returns ErrDuplicateJobKey when a
	// non-terminal job already exists for (job.Queue, job.Key).
	CreateJob(ctx context.Context, job *Job) error

	// RemoveJob removes the waiting job stored under key.
	// Returns false when there is none or when it is already active.
	RemoveJob(ctx context.Context, queue, key string) (bool, error)

	// GetJob returns the non-terminal job stored under key or ErrJobNotFound.
	GetJob(ctx context.Context, queue, key string) (*Job, error)
}

// Enqueuer adds and removes jobs. It owns job-key assignment but never
// silently dedupes: enqueuing over a live key fails until the caller removes it.
type Enqueuer struct {
	repo         EnqueuerRepository
	defaultQueue string
	maxAttempts  int
	backoff      Backoff
	now          func() time.Time
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultQueue: DefaultQueueName,
		maxAttempts:  DefaultMaxAttempts,
		backoff:      DefaultBackoff(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:         repo,
		defaultQueue: options.defaultQueue,
		maxAttempts:  options.maxAttempts,
		backoff:      options.backoff,
		now:          options.now,
	}, nil
}

// Enqueue adds a new job to the queue. The job becomes eligible at now+delay.
func (e *Enqueuer) Enqueue(ctx context.Context, payload Payload, opts ...EnqueueOption) (*JobHandle, error) {
	if payload == nil {
		return nil, ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:       e.defaultQueue,
		maxAttempts: e.maxAttempts,
		backoff:     e.backoff,
	}
	for _, opt := range opts {
		opt(options)
	}

	job, err := e.buildJob(payload, options)
	if err != nil {
		return nil, err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		if errors.Is(err, ErrDuplicateJobKey) {
			return nil, fmt.Errorf("enqueue %q with key %q in queue %q: %w", job.Type, job.Key, job.Queue, err)
		}
		return nil, errors.Join(ErrQueueUnavailable, fmt.Errorf("enqueue %q in queue %q: %w", job.Type, job.Queue, err))
	}

	return job.Handle(), nil
}

// EnqueueReplacing removes any waiting job under the same key and enqueues payload.
// A job that is already active cannot be replaced and yields ErrDuplicateJobKey.
func (e *Enqueuer) EnqueueReplacing(ctx context.Context, payload Payload, opts ...EnqueueOption) (*JobHandle, error) {
	options := &enqueueOptions{queue: e.defaultQueue}
	for _, opt := range opts {
		opt(options)
	}
	if options.key == "" {
		return nil, fmt.Errorf("enqueue replacing %T: job key is required", payload)
	}

	if _, err := e.Remove(ctx, options.queue, options.key); err != nil {
		return nil, err
	}
	return e.Enqueue(ctx, payload, opts...)
}

// Remove cancels the waiting job stored under key. It is idempotent and
// returns false when no matching job existed.
func (e *Enqueuer) Remove(ctx context.Context, queue, key string) (bool, error) {
	if queue == "" {
		queue = e.defaultQueue
	}
	removed, err := e.repo.RemoveJob(ctx, queue, key)
	if err != nil {
		return false, errors.Join(ErrQueueUnavailable, fmt.Errorf("remove key %q from queue %q: %w", key, queue, err))
	}
	return removed, nil
}

// Get returns the non-terminal job stored under key.
func (e *Enqueuer) Get(ctx context.Context, queue, key string) (*Job, error) {
	if queue == "" {
		queue = e.defaultQueue
	}
	job, err := e.repo.GetJob(ctx, queue, key)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, errors.Join(ErrQueueUnavailable, err)
	}
	return job, nil
}

func (e *Enqueuer) buildJob(payload Payload, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	now := e.now()
	runAt := now
	if options.runAt != nil {
		runAt = *options.runAt
	} else if options.delay > 0 {
		runAt = now.Add(options.delay)
	}

	id := uuid.New()
	key := options.key
	if key == "" {
		key = id.String()
	}

	return &Job{
		ID:          id,
		Queue:       options.queue,
		Key:         key,
		Type:        payload.JobType(),
		Payload:     payloadBytes,
		Status:      JobStatusWaiting,
		MaxAttempts: options.maxAttempts,
		Backoff:     options.backoff,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
