package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/webhook"
	"github.com/dmitrymomot/shopflow/svc/order"
)

// EventPaymentSuccess is the webhook event type for a settled successful payment.
const EventPaymentSuccess = "payment_success"

// OrderNotifier posts order events to the configured webhook endpoint.
// Deliveries run in the background and their failures are only logged.
type OrderNotifier struct {
	sender   *webhook.Sender
	deadline time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

type Option func(*options)

type options struct {
	logger     *slog.Logger
	senderOpts []webhook.Option
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSenderOptions appends options to the underlying webhook sender.
func WithSenderOptions(opts ...webhook.Option) Option {
	return func(o *options) {
		o.senderOpts = append(o.senderOpts, opts...)
	}
}

// NewOrderNotifier builds a notifier for cfg. With no URL configured the
// notifier is valid and sends nothing.
func NewOrderNotifier(cfg Config, opts ...Option) (*OrderNotifier, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	n := &OrderNotifier{logger: o.logger.With(logger.Component("notify.order"))}
	if cfg.WebhookURL == "" {
		return n, nil
	}

	senderOpts := []webhook.Option{
		webhook.WithMaxRetries(cfg.MaxRetries),
		webhook.WithOnDelivery(n.logAttempt),
	}
	if cfg.Timeout > 0 {
		senderOpts = append(senderOpts, webhook.WithTimeout(cfg.Timeout))
	}
	if cfg.WebhookSecret != "" {
		senderOpts = append(senderOpts, webhook.WithSecret(cfg.WebhookSecret))
	}
	if cfg.BreakerThreshold > 0 {
		senderOpts = append(senderOpts, webhook.WithCircuitBreaker(
			webhook.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown)))
	}
	senderOpts = append(senderOpts, o.senderOpts...)

	sender, err := webhook.NewSender(cfg.WebhookURL, senderOpts...)
	if err != nil {
		return nil, fmt.Errorf("create order webhook sender: %w", err)
	}
	n.sender = sender

	// A delivery may take every attempt plus the backoff between them.
	n.deadline = time.Duration(cfg.MaxRetries+1)*max(cfg.Timeout, time.Second) + time.Minute
	return n, nil
}

// Enabled reports whether a webhook URL is configured.
func (n *OrderNotifier) Enabled() bool {
	return n.sender != nil
}

// NotifyPaymentSuccess sends a payment_success event carrying o. It returns
// immediately; the delivery outlives ctx cancellation.
func (n *OrderNotifier) NotifyPaymentSuccess(ctx context.Context, o *order.Order) {
	if n.sender == nil {
		n.logger.DebugContext(ctx, "order webhook not configured, skipping", logger.OrderID(o.ID))
		return
	}

	event := webhook.NewEvent(EventPaymentSuccess, *o)
	deliverCtx := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(deliverCtx, n.deadline)
		defer cancel()

		if err := n.sender.Deliver(ctx, event); err != nil {
			n.logger.WarnContext(ctx, "order webhook delivery failed",
				logger.OrderID(o.ID),
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				logger.Error(err))
			return
		}
		n.logger.InfoContext(ctx, "order webhook delivered",
			logger.OrderID(o.ID),
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type))
	}()
}

// Wait blocks until every started delivery has finished.
func (n *OrderNotifier) Wait() {
	n.wg.Wait()
}

func (n *OrderNotifier) logAttempt(r webhook.DeliveryResult) {
	if r.Err == nil {
		return
	}
	n.logger.Debug("order webhook attempt failed",
		slog.String("event_id", r.EventID),
		slog.Int("attempt", r.Attempt),
		slog.Int("status_code", r.StatusCode),
		logger.Duration(r.Duration),
		logger.Error(r.Err))
}
