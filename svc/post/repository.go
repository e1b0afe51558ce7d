package post

import (
	"context"
	"time"
)

// Repository persists posts.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, id string) (*Post, error)

	// UpdatePlatforms replaces the platforms array and nothing else.
	UpdatePlatforms(ctx context.Context, id string, platforms []PlatformMetadata) (*Post, error)

	// UpdateSchedule sets scheduledAt (nil clears it) together with the
	// platforms array in one write.
	UpdateSchedule(ctx context.Context, id string, scheduledAt *time.Time, platforms []PlatformMetadata) (*Post, error)
}
