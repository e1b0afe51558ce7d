package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/post"
)

// Scheduler keeps a post's publication job in line with its scheduledAt.
type Scheduler struct {
	posts  post.Repository
	client *jobs.Client
	logger *slog.Logger
	now    func() time.Time
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(posts post.Repository, client *jobs.Client, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		posts:  posts,
		client: client,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("publishing.scheduler"))
	return s
}

// Schedule moves the publication of postID to at. The waiting job for the
// post is always removed first. A future at enqueues a new job delayed until
// then and marks the platforms scheduled; a nil or past at leaves no job and
// reverts the platforms to draft. Published entries are never touched.
func (s *Scheduler) Schedule(ctx context.Context, postID string, at *time.Time) (*post.Post, error) {
	ps, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	payload := jobs.PublishScheduledPost{PostID: ps.ID, UserID: ps.UserID}
	if err := jobs.Validate(payload); err != nil {
		return nil, fmt.Errorf("schedule post %s: %w", ps.ID, err)
	}

	pending, err := s.client.Pending(ctx, payload)
	switch {
	case err == nil && pending.Status == queue.JobStatusActive:
		return nil, ErrPublishInProgress
	case err != nil && !errors.Is(err, queue.ErrJobNotFound):
		return nil, fmt.Errorf("check publication job of post %s: %w", ps.ID, err)
	}
	hadJob := err == nil

	now := s.now()
	if at == nil || !at.After(now) {
		if _, err := s.client.Cancel(ctx, payload); err != nil {
			return nil, fmt.Errorf("cancel publication job of post %s: %w", ps.ID, err)
		}
		updated, err := s.posts.UpdateSchedule(ctx, ps.ID, nil, post.WithStatus(ps.Platforms, post.StatusDraft))
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "post unscheduled", logger.PostID(ps.ID))
		return updated, nil
	}

	// The job goes in before the post says scheduled, so a stored future
	// scheduledAt always has a job under the post key.
	when := at.UTC()
	delay := when.Sub(now)
	if _, err := s.client.Reschedule(ctx, payload, delay); err != nil {
		s.restore(ctx, ps, hadJob, now)
		if errors.Is(err, queue.ErrDuplicateJobKey) {
			return nil, ErrPublishInProgress
		}
		return nil, fmt.Errorf("enqueue publication job of post %s: %w", ps.ID, err)
	}

	updated, err := s.posts.UpdateSchedule(ctx, ps.ID, &when, post.WithStatus(ps.Platforms, post.StatusScheduled))
	if err != nil {
		s.restore(ctx, ps, hadJob, now)
		return nil, err
	}

	s.logger.InfoContext(ctx, "post scheduled",
		logger.PostID(ps.ID),
		slog.Time("scheduled_at", when),
		logger.Duration(delay))
	return updated, nil
}

// restore puts back the publication job of the stored schedule after a failed
// reschedule. When that is impossible the post reverts to draft so it never
// claims a schedule without a job.
func (s *Scheduler) restore(ctx context.Context, ps *post.Post, hadJob bool, now time.Time) {
	ctx = context.WithoutCancel(ctx)
	payload := jobs.PublishScheduledPost{PostID: ps.ID, UserID: ps.UserID}
	log := s.logger.With(logger.PostID(ps.ID))

	if hadJob && ps.ScheduledAt != nil && ps.ScheduledAt.After(now) {
		_, err := s.client.Reschedule(ctx, payload, ps.ScheduledAt.Sub(now))
		if err == nil || errors.Is(err, queue.ErrDuplicateJobKey) {
			return
		}
		log.WarnContext(ctx, "restore publication job", logger.Error(err))
	} else if _, err := s.client.Cancel(ctx, payload); err != nil {
		log.WarnContext(ctx, "remove publication job", logger.Error(err))
	}

	if ps.ScheduledAt == nil {
		return
	}
	if _, err := s.posts.UpdateSchedule(ctx, ps.ID, nil, post.WithStatus(ps.Platforms, post.StatusDraft)); err != nil {
		log.ErrorContext(ctx, "revert post to draft", logger.Error(err))
		return
	}
	log.WarnContext(ctx, "post reverted to draft after failed reschedule")
}

// Cancel removes the pending publication of postID and reverts it to draft.
func (s *Scheduler) Cancel(ctx context.Context, postID string) (*post.Post, error) {
	return s.Schedule(ctx, postID, nil)
}
