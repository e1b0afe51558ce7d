package post

import (
	"slices"
	"time"
)

// PlatformStatus is the state of a post on one platform.
type PlatformStatus string

const (
	StatusDraft     PlatformStatus = "draft"
	StatusScheduled PlatformStatus = "scheduled"
	StatusPublished PlatformStatus = "published"
	StatusFailed    PlatformStatus = "failed"
)

// PlatformMetadata tracks a post on one target platform. A post has no
// overall status: its state is the set of these entries.
type PlatformMetadata struct {
	Platform    string         `bson:"platform" json:"platform"`
	PostID      string         `bson:"post_id,omitempty" json:"postId,omitempty"`
	Permalink   string         `bson:"permalink,omitempty" json:"permalink,omitempty"`
	Status      PlatformStatus `bson:"status" json:"status"`
	PublishedAt *time.Time     `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
	Error       string         `bson:"error,omitempty" json:"error,omitempty"`
}

// Post is content published to one or more platforms on behalf of UserID,
// whose stored credentials the platform adapters use.
type Post struct {
	ID          string             `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Body        string             `bson:"body,omitempty" json:"body,omitempty"`
	Media       []string           `bson:"media,omitempty" json:"media,omitempty"`
	Hashtags    []string           `bson:"hashtags,omitempty" json:"hashtags,omitempty"`
	Mentions    []string           `bson:"mentions,omitempty" json:"mentions,omitempty"`
	ScheduledAt *time.Time         `bson:"scheduled_at,omitempty" json:"scheduledAt,omitempty"`
	Platforms   []PlatformMetadata `bson:"platforms" json:"platforms"`
	UserID      string             `bson:"user_id" json:"userId"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Platform returns the entry for name.
func (p *Post) Platform(name string) (PlatformMetadata, bool) {
	i := slices.IndexFunc(p.Platforms, func(m PlatformMetadata) bool { return m.Platform == name })
	if i < 0 {
		return PlatformMetadata{}, false
	}
	return p.Platforms[i], true
}

// MergePlatforms merges updates into current by platform name. Entries are
// replaced in place, unknown platforms are appended, and the order of
// updates does not matter.
func MergePlatforms(current, updates []PlatformMetadata) []PlatformMetadata {
	merged := slices.Clone(current)
	for _, u := range updates {
		i := slices.IndexFunc(merged, func(m PlatformMetadata) bool { return m.Platform == u.Platform })
		if i < 0 {
			merged = append(merged, u)
			continue
		}
		merged[i] = u
	}
	return merged
}

// WithStatus returns a copy of platforms with every entry set to status.
// Publication results are cleared; already published entries are kept.
func WithStatus(platforms []PlatformMetadata, status PlatformStatus) []PlatformMetadata {
	out := make([]PlatformMetadata, len(platforms))
	for i, m := range platforms {
		if m.Status == StatusPublished {
			out[i] = m
			continue
		}
		out[i] = PlatformMetadata{Platform: m.Platform, Status: status}
	}
	return out
}
