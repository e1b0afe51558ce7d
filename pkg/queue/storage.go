package queue

import "context"

// Storage is implemented by queue backends usable by both sides of the queue
type Storage interface {
	EnqueuerRepository
	WorkerRepository
}

// Inspector exposes read-only queue state for health checks and operators
type Inspector interface {
	Stats(ctx context.Context, queue string) (QueueStats, error)
	DeadJobs(ctx context.Context, queue string, limit int) ([]*Job, error)
}

// QueueStats counts the jobs of one queue by state
type QueueStats struct {
	Waiting int64 `json:"waiting"`
	Active  int64 `json:"active"`
	Dead    int64 `json:"dead"`
}

var (
	_ Storage   = (*MemoryStorage)(nil)
	_ Storage   = (*RedisStorage)(nil)
	_ Inspector = (*MemoryStorage)(nil)
	_ Inspector = (*RedisStorage)(nil)
)
