package post

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]*Post
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[string]*Post), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[p.ID]; exists {
		return fmt.Errorf("create post %q: already exists", p.ID)
	}
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.posts[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepository) UpdatePlatforms(_ context.Context, id string, platforms []PlatformMetadata) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Platforms = slices.Clone(platforms)
	p.UpdatedAt = r.now()
	return clone(p), nil
}

func (r *MemoryRepository) UpdateSchedule(_ context.Context, id string, scheduledAt *time.Time, platforms []PlatformMetadata) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.ScheduledAt = copyTime(scheduledAt)
	p.Platforms = slices.Clone(platforms)
	p.UpdatedAt = r.now()
	return clone(p), nil
}

func clone(p *Post) *Post {
	c := *p
	c.Media = slices.Clone(p.Media)
	c.Hashtags = slices.Clone(p.Hashtags)
	c.Mentions = slices.Clone(p.Mentions)
	c.ScheduledAt = copyTime(p.ScheduledAt)
	c.Platforms = make([]PlatformMetadata, len(p.Platforms))
	for i, m := range p.Platforms {
		m.PublishedAt = copyTime(m.PublishedAt)
		c.Platforms[i] = m
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
