package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/async"
	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/platform"
	"github.com/dmitrymomot/shopflow/svc/post"
)

// AdapterFactory resolves a platform adapter for a credential scope.
type AdapterFactory interface {
	Create(ctx context.Context, platform, scope string) (platform.Adapter, error)
}

// Publisher is the publishScheduledPost job handler. It publishes a post to
// every target platform concurrently and stores the per-platform outcomes.
type Publisher struct {
	posts    post.Repository
	adapters AdapterFactory
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type PublisherOption func(*Publisher)

// WithPlatformTimeout bounds the publish call of one platform. Default is 60s.
func WithPlatformTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(posts post.Repository, adapters AdapterFactory, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		posts:    posts,
		adapters: adapters,
		timeout:  60 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("publishing.publisher"))
	return p
}

// Handle attempts every platform entry that is not published yet. Platform
// failures are recorded on the post and do not fail the job; only a missing
// post (terminal) or a storage error (retryable) does.
func (p *Publisher) Handle(ctx context.Context, job jobs.PublishScheduledPost) error {
	ps, err := p.posts.Get(ctx, job.PostID)
	if errors.Is(err, post.ErrNotFound) {
		return queue.Terminal(err)
	}
	if err != nil {
		return queue.Retryable(fmt.Errorf("load post %s: %w", job.PostID, err))
	}

	scope := job.UserID
	if scope == "" {
		scope = ps.UserID
	}

	req := platform.PublishRequest{
		Title:       ps.Title,
		Body:        ps.Body,
		Media:       ps.Media,
		Hashtags:    ps.Hashtags,
		Mentions:    ps.Mentions,
		ScheduledAt: ps.ScheduledAt,
	}

	var targets []string
	for _, m := range ps.Platforms {
		if m.Status != post.StatusPublished {
			targets = append(targets, m.Platform)
		}
	}
	if len(targets) == 0 {
		p.logger.InfoContext(ctx, "post already published on every platform", logger.PostID(ps.ID))
		return nil
	}

	futures := make([]*async.Future[post.PlatformMetadata], len(targets))
	for i, name := range targets {
		futures[i] = async.Async(ctx, name, func(ctx context.Context, name string) (post.PlatformMetadata, error) {
			return p.publishOne(ctx, name, scope, req), nil
		})
	}

	results := make([]post.PlatformMetadata, len(targets))
	failed := 0
	for i, r := range async.Settle(futures...) {
		m := r.Value
		if r.Err != nil {
			m = p.failure(targets[i], r.Err)
		}
		if m.Status == post.StatusFailed {
			failed++
			p.logger.InfoContext(ctx, "post publication failed on platform",
				logger.PostID(ps.ID),
				logger.Platform(m.Platform),
				slog.String("error", m.Error))
		}
		results[i] = m
	}

	merged := post.MergePlatforms(ps.Platforms, results)
	if _, err := p.posts.UpdatePlatforms(ctx, ps.ID, merged); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			return queue.Terminal(err)
		}
		return queue.Retryable(fmt.Errorf("store publication results of post %s: %w", ps.ID, err))
	}

	if failed == len(targets) {
		p.logger.WarnContext(ctx, "post publication failed on every platform",
			logger.PostID(ps.ID),
			slog.Int("platforms", len(targets)))
		return nil
	}

	p.logger.InfoContext(ctx, "post published",
		logger.PostID(ps.ID),
		slog.Int("published", len(targets)-failed),
		slog.Int("failed", failed))
	return nil
}

func (p *Publisher) publishOne(ctx context.Context, name, scope string, req platform.PublishRequest) post.PlatformMetadata {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	adapter, err := p.adapters.Create(ctx, name, scope)
	if err != nil {
		return p.failure(name, err)
	}

	res, err := adapter.Publish(ctx, req)
	if err != nil {
		return p.failure(name, err)
	}
	if res == nil || !res.Success {
		msg := "publish was not accepted"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return p.failure(name, errors.New(msg))
	}

	now := p.now()
	return post.PlatformMetadata{
		Platform:    name,
		PostID:      res.PostID,
		Permalink:   res.Permalink,
		Status:      post.StatusPublished,
		PublishedAt: &now,
	}
}

func (p *Publisher) failure(name string, err error) post.PlatformMetadata {
	return post.PlatformMetadata{
		Platform: name,
		Status:   post.StatusFailed,
		Error:    err.Error(),
	}
}
