package jobs

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
)

// Handlers binds one function per job type. A nil field is reported by
// ForQueue at startup instead of failing the first job.
type Handlers struct {
	CheckPaymentStatus   queue.HandlerFunc[CheckPaymentStatus]
	PublishScheduledPost queue.HandlerFunc[PublishScheduledPost]
	SendEmail            queue.HandlerFunc[SendEmail]
	SweepPendingPayments queue.PeriodicHandlerFunc
}

// ForQueue returns the handlers that run on the named queue.
func (h Handlers) ForQueue(name string) ([]queue.Handler, error) {
	switch name {
	case QueueOrders:
		if h.CheckPaymentStatus == nil || h.SweepPendingPayments == nil {
			return nil, fmt.Errorf("queue %s: missing handler", name)
		}
		return []queue.Handler{
			typed(h.CheckPaymentStatus),
			queue.NewPeriodicHandler(TypeSweepPendingPayments, h.SweepPendingPayments),
		}, nil
	case QueueScheduledPosts:
		if h.PublishScheduledPost == nil {
			return nil, fmt.Errorf("queue %s: missing handler", name)
		}
		return []queue.Handler{typed(h.PublishScheduledPost)}, nil
	case QueueEmails:
		if h.SendEmail == nil {
			return nil, fmt.Errorf("queue %s: missing handler", name)
		}
		return []queue.Handler{typed(h.SendEmail)}, nil
	default:
		return nil, fmt.Errorf("unknown queue %q", name)
	}
}

// Queues lists every queue that has workers.
func Queues() []string {
	return []string{QueueOrders, QueueScheduledPosts, QueueEmails}
}

// typed validates the decoded payload and tags the handler context with
// the job type, queue and key before calling fn.
func typed[T Payload](fn queue.HandlerFunc[T]) queue.Handler {
	return queue.NewHandler[T](func(ctx context.Context, p T) error {
		if err := Validate(p); err != nil {
			return queue.Terminal(err)
		}
		ctx = logger.ContextWithAttrs(ctx,
			logger.JobType(p.JobType()),
			logger.Queue(p.Queue()),
			logger.JobKey(p.Key()))
		return fn(ctx, p)
	})
}
