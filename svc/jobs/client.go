package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/queue"
)

// Client enqueues payloads on their own queue under their own key.
type Client struct {
	enq *queue.Enqueuer
}

func NewClient(enq *queue.Enqueuer) *Client {
	return &Client{enq: enq}
}

// Enqueue validates and enqueues p. Enqueuing over a key that still has a
// pending or running job fails with queue.ErrDuplicateJobKey.
func (c *Client) Enqueue(ctx context.Context, p Payload, opts ...queue.EnqueueOption) (*queue.JobHandle, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	return c.enq.Enqueue(ctx, p, c.options(p, opts)...)
}

// EnqueueIfAbsent is Enqueue that reports false instead of failing when a job
// already exists for the key.
func (c *Client) EnqueueIfAbsent(ctx context.Context, p Payload, opts ...queue.EnqueueOption) (*queue.JobHandle, bool, error) {
	h, err := c.Enqueue(ctx, p, opts...)
	if errors.Is(err, queue.ErrDuplicateJobKey) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return h, true, nil
}

// Reschedule removes the waiting job under p's key and enqueues p to run after delay.
func (c *Client) Reschedule(ctx context.Context, p Payload, delay time.Duration, opts ...queue.EnqueueOption) (*queue.JobHandle, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	opts = append(c.options(p, opts), queue.WithDelay(delay))
	return c.enq.EnqueueReplacing(ctx, p, opts...)
}

// Cancel removes the waiting job under p's key. It returns false when there was none.
func (c *Client) Cancel(ctx context.Context, p Payload) (bool, error) {
	if p.Key() == "" {
		return false, nil
	}
	return c.enq.Remove(ctx, p.Queue(), p.Key())
}

// Pending returns the non-terminal job under p's key.
func (c *Client) Pending(ctx context.Context, p Payload) (*queue.Job, error) {
	return c.enq.Get(ctx, p.Queue(), p.Key())
}

func (c *Client) options(p Payload, extra []queue.EnqueueOption) []queue.EnqueueOption {
	opts := []queue.EnqueueOption{queue.WithQueue(p.Queue())}
	if key := p.Key(); key != "" {
		opts = append(opts, queue.WithJobKey(key))
	}
	return append(opts, extra...)
}
