// Package webhook delivers JSON events to a single HTTP endpoint.
//
// A Sender is bound to one URL and owns the retry policy, the optional
// HMAC secret and the optional circuit breaker for that endpoint:
//
//	sender, err := webhook.NewSender(cfg.URL,
//		webhook.WithSecret(cfg.Secret),
//		webhook.WithMaxRetries(2),
//		webhook.WithCircuitBreaker(webhook.NewCircuitBreaker(5, time.Minute)),
//	)
//	if err != nil {
//		return err
//	}
//
//	err = sender.Deliver(ctx, webhook.NewEvent("payment_success", order))
//
// Signed deliveries carry X-Shopflow-Timestamp and X-Shopflow-Signature, the
// hex HMAC-SHA256 of "<timestamp>.<body>". Receivers check them with Verify.
package webhook
