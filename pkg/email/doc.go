// Package email sends transactional emails through Postmark, or writes them to
// disk during development.
//
//	sender, err := email.New(cfg, logger)
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "customer@example.com",
//		Subject:  "Payment received",
//		BodyHTML: html,
//		Tag:      "payment-receipt",
//	})
//
// Callers that retry sends distinguish the two failure modes:
// ErrInvalidParams and ErrRejected will fail again, ErrFailedToSendEmail may not.
package email
