package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage for tests and local development.
// Expired locks are released lazily on the next claim.
type MemoryStorage struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
	keys map[string]uuid.UUID
	dead []*Job
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		jobs: make(map[uuid.UUID]*Job),
		keys: make(map[string]uuid.UUID),
	}
}

func keyIndex(queue, key string) string {
	return queue + "\x00" + key
}

// CreateJob implements EnqueuerRepository
func (ms *MemoryStorage) CreateJob(_ context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	idx := keyIndex(job.Queue, job.Key)
	if _, exists := ms.keys[idx]; exists {
		return ErrDuplicateJobKey
	}
	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	jobCopy := *job
	jobCopy.Status = JobStatusWaiting
	ms.jobs[job.ID] = &jobCopy
	ms.keys[idx] = job.ID

	return nil
}

// RemoveJob implements EnqueuerRepository
func (ms *MemoryStorage) RemoveJob(_ context.Context, queue, key string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	idx := keyIndex(queue, key)
	id, ok := ms.keys[idx]
	if !ok {
		return false, nil
	}

	job := ms.jobs[id]
	if job == nil || job.Status != JobStatusWaiting {
		return false, nil
	}

	delete(ms.jobs, id)
	delete(ms.keys, idx)
	return true, nil
}

// GetJob implements EnqueuerRepository
func (ms *MemoryStorage) GetJob(_ context.Context, queue, key string) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, ok := ms.keys[keyIndex(queue, key)]
	if !ok {
		return nil, ErrJobNotFound
	}
	job, ok := ms.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ClaimJob implements WorkerRepository
func (ms *MemoryStorage) ClaimJob(_ context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	var next *Job
	for _, job := range ms.jobs {
		if job.Queue != queue {
			continue
		}

		// A worker that died mid-job loses its lock
		if job.Status == JobStatusActive && job.LockedUntil != nil && job.LockedUntil.Before(now) {
			job.Status = JobStatusWaiting
			job.LockedBy = nil
			job.LockedUntil = nil
			job.UpdatedAt = now
		}

		if job.Status != JobStatusWaiting || job.RunAt.After(now) {
			continue
		}
		if next == nil || job.RunAt.Before(next.RunAt) ||
			(job.RunAt.Equal(next.RunAt) && job.CreatedAt.Before(next.CreatedAt)) {
			next = job
		}
	}

	if next == nil {
		return nil, ErrNoJobToClaim
	}

	lockedUntil := now.Add(lockDuration)
	next.Status = JobStatusActive
	next.LockedBy = &workerID
	next.LockedUntil = &lockedUntil
	next.UpdatedAt = now

	jobCopy := *next
	return &jobCopy, nil
}

// CompleteJob implements WorkerRepository
func (ms *MemoryStorage) CompleteJob(_ context.Context, job *Job) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, err := ms.activeLocked(job)
	if err != nil {
		return err
	}

	delete(ms.jobs, stored.ID)
	delete(ms.keys, keyIndex(stored.Queue, stored.Key))
	return nil
}

// RetryJob implements WorkerRepository
func (ms *MemoryStorage) RetryJob(_ context.Context, job *Job, runAt time.Time, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, err := ms.activeLocked(job)
	if err != nil {
		return err
	}

	stored.Status = JobStatusWaiting
	stored.Attempts = job.Attempts
	stored.RunAt = runAt
	stored.LockedBy = nil
	stored.LockedUntil = nil
	stored.LastError = &errorMsg
	stored.UpdatedAt = time.Now()
	return nil
}

// FailJob implements WorkerRepository
func (ms *MemoryStorage) FailJob(_ context.Context, job *Job, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, err := ms.activeLocked(job)
	if err != nil {
		return err
	}

	stored.Status = JobStatusFailed
	stored.Attempts = job.Attempts
	stored.LockedBy = nil
	stored.LockedUntil = nil
	stored.LastError = &errorMsg
	stored.UpdatedAt = time.Now()

	delete(ms.jobs, stored.ID)
	delete(ms.keys, keyIndex(stored.Queue, stored.Key))
	ms.dead = append(ms.dead, stored)
	return nil
}

// ExtendLock implements WorkerRepository
func (ms *MemoryStorage) ExtendLock(_ context.Context, job *Job, duration time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, err := ms.activeLocked(job)
	if err != nil {
		return err
	}

	lockedUntil := time.Now().Add(duration)
	stored.LockedUntil = &lockedUntil
	return nil
}

// DeadJobs returns the jobs of queue that failed permanently, newest first
func (ms *MemoryStorage) DeadJobs(_ context.Context, queue string, limit int) ([]*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	result := make([]*Job, 0)
	for _, job := range slices.Backward(ms.dead) {
		if job.Queue != queue {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Stats returns the number of waiting and active jobs in queue
func (ms *MemoryStorage) Stats(_ context.Context, queue string) (QueueStats, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var stats QueueStats
	for _, job := range ms.jobs {
		if job.Queue != queue {
			continue
		}
		switch job.Status {
		case JobStatusWaiting:
			stats.Waiting++
		case JobStatusActive:
			stats.Active++
		}
	}
	for _, job := range ms.dead {
		if job.Queue == queue {
			stats.Dead++
		}
	}
	return stats, nil
}

func (ms *MemoryStorage) activeLocked(job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job cannot be nil")
	}
	stored, ok := ms.jobs[job.ID]
	if !ok || stored.Status != JobStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrJobNotActive, job.ID)
	}
	if job.LockedBy != nil && stored.LockedBy != nil && *job.LockedBy != *stored.LockedBy {
		return nil, fmt.Errorf("%w: %s is locked by another worker", ErrJobNotActive, job.ID)
	}
	return stored, nil
}
