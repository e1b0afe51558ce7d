package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is the queue used when no queue is specified
const DefaultQueueName = "default"

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRemoved   JobStatus = "removed"
)

// Terminal reports whether no further transition is possible from the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusRemoved:
		return true
	default:
		return false
	}
}

// Payload is implemented by every value that can be enqueued.
// JobType is the routing tag used to find the handler on the worker side.
type Payload interface {
	JobType() string
}

// Job is a unit of deferred work as persisted by the queue store.
// Jobs reference domain entities by id only.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Queue       string     `json:"queue"`
	Key         string     `json:"key"`
	Type        string     `json:"type"`
	Payload     []byte     `json:"payload,omitempty"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Backoff     Backoff    `json:"backoff"`
	RunAt       time.Time  `json:"run_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Handle returns the caller-facing reference to the job.
func (j *Job) Handle() *JobHandle {
	return &JobHandle{
		ID:    j.ID,
		Queue: j.Queue,
		Key:   j.Key,
		Type:  j.Type,
		RunAt: j.RunAt,
	}
}

// Exhausted reports whether one more failure would exceed MaxAttempts.
func (j *Job) Exhausted() bool {
	return j.Attempts+1 >= j.MaxAttempts
}

// JobHandle is returned to callers of Enqueue. It never blocks on completion;
// callers read entity state later.
type JobHandle struct {
	ID    uuid.UUID `json:"id"`
	Queue string    `json:"queue"`
	Key   string    `json:"key"`
	Type  string    `json:"type"`
	RunAt time.Time `json:"run_at"`
}
