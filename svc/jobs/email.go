package jobs

import (
	"context"
	"errors"

	"github.com/dmitrymomot/shopflow/pkg/email"
	"github.com/dmitrymomot/shopflow/pkg/queue"
)

// SendEmailHandler delivers SendEmail jobs. Messages the provider refuses
// are not retried.
func SendEmailHandler(sender email.EmailSender) queue.HandlerFunc[SendEmail] {
	return func(ctx context.Context, p SendEmail) error {
		err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   p.To,
			Subject:  p.Subject,
			BodyHTML: p.BodyHTML,
			Tag:      p.Tag,
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, email.ErrInvalidParams), errors.Is(err, email.ErrRejected):
			return queue.Terminal(err)
		default:
			return queue.Retryable(err)
		}
	}
}
