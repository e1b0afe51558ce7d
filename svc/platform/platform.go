package platform

import (
	"context"
	"time"
)

// Supported platform names.
const (
	Facebook = "facebook"
	TikTok   = "tiktok"
	X        = "x"
)

// Adapter publishes to one social platform on behalf of one credential scope.
// Request and response mapping is private to each adapter.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
	Update(ctx context.Context, externalID string, req PublishRequest) (*PublishResult, error)
	// Delete reports false when the post was already gone.
	Delete(ctx context.Context, externalID string) (bool, error)
	Metrics(ctx context.Context, externalID string) (*Metrics, error)
}

// PublishRequest is the platform-neutral content of a post.
type PublishRequest struct {
	Title       string
	Body        string
	Media       []string
	Hashtags    []string
	Mentions    []string
	ScheduledAt *time.Time
}

// PublishResult is the outcome of a publish or update call.
type PublishResult struct {
	Success   bool
	PostID    string
	Permalink string
	Error     string
}

// Metrics are engagement counters of one published post. Counters a
// platform does not report stay zero.
type Metrics struct {
	Likes       int64
	Comments    int64
	Shares      int64
	Views       int64
	Impressions int64
	FetchedAt   time.Time
}

// Supported returns the platform names the factory can build adapters for.
func Supported() []string {
	return []string{Facebook, TikTok, X}
}
