package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
)

// Notifier is told about orders whose payment just became successful.
// Implementations must not block the reconciler.
type Notifier interface {
	NotifyPaymentSuccess(ctx context.Context, o *order.Order)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, o *order.Order)

func (f NotifierFunc) NotifyPaymentSuccess(ctx context.Context, o *order.Order) { f(ctx, o) }

// Reconciler compares the gateway's view of a payment with the stored order
// and settles the order when they disagree.
type Reconciler struct {
	orders    order.Repository
	gateways  *Gateways
	notifiers []Notifier
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type ReconcilerOption func(*Reconciler)

// WithGatewayTimeout bounds a single gateway call. Default is 15s.
func WithGatewayTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithNotifiers(n ...Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		r.notifiers = append(r.notifiers, n...)
	}
}

func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

func NewReconciler(orders order.Repository, gateways *Gateways, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		orders:   orders,
		gateways: gateways,
		timeout:  15 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("payment.reconciler"))
	return r
}

// Handle is the checkPaymentStatus job handler. Gateway outages are
// retryable. A missing order or an unknown external id is terminal.
// Running it again after the order settled changes nothing and notifies
// nobody.
func (r *Reconciler) Handle(ctx context.Context, job jobs.CheckPaymentStatus) error {
	o, err := r.orders.Get(ctx, job.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		r.logger.WarnContext(ctx, "order for payment check not found", logger.OrderID(job.OrderID))
		return queue.Terminal(err)
	}
	if err != nil {
		return queue.Retryable(fmt.Errorf("load order %s: %w", job.OrderID, err))
	}

	gw, err := r.gateways.Resolve(o.PlatformSource)
	if err != nil {
		return queue.Terminal(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	res, err := gw.CheckStatus(callCtx, job.ExternalOrderID, job.ScopeID)
	cancel()
	if errors.Is(err, ErrPaymentNotFound) {
		return queue.Terminal(err)
	}
	if err != nil {
		return queue.Retryable(err)
	}

	log := r.logger.With(
		logger.OrderID(o.ID),
		logger.Gateway(gw.Name()),
		slog.String("gateway_status", string(res.Status)),
		slog.String("stored_status", string(o.Payment.Status)),
	)

	switch {
	case res.Status == StatusPending:
		log.DebugContext(ctx, "payment still pending")
		return nil
	case res.Status == o.Payment.Status:
		log.DebugContext(ctx, "payment status unchanged")
		return nil
	case o.Payment.Status.Terminal():
		log.WarnContext(ctx, "gateway status conflicts with settled order, leaving order unchanged")
		return nil
	}

	paidAt := res.PaidAt
	if res.Status == StatusSuccess && paidAt == nil {
		now := r.now()
		paidAt = &now
	}

	next, err := o.Payment.Settle(res.Status, res.Method, res.Amount, paidAt)
	if err != nil {
		return queue.Terminal(err)
	}

	updated, err := r.orders.SettlePayment(ctx, o.ID, next)
	switch {
	case errors.Is(err, order.ErrPaymentSettled):
		log.InfoContext(ctx, "order settled concurrently")
		return nil
	case errors.Is(err, order.ErrNotFound):
		return queue.Terminal(err)
	case err != nil:
		return queue.Retryable(fmt.Errorf("settle order %s: %w", o.ID, err))
	}

	log.InfoContext(ctx, "order payment settled", slog.Int64("amount", updated.Payment.Amount))

	if updated.Payment.Status == StatusSuccess {
		for _, n := range r.notifiers {
			n.NotifyPaymentSuccess(ctx, updated)
		}
	}
	return nil
}
