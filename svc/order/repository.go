package order

import (
	"context"
	"time"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// SettlePayment replaces the payment sub-document of a pending order and
	// leaves every other field untouched. It fails with ErrPaymentSettled when
	// the stored payment is no longer pending, so two concurrent settlements
	// cannot both win.
	SettlePayment(ctx context.Context, id string, payment Payment) (*Order, error)

	// ListPendingPayments returns orders still awaiting payment that were
	// created before the cutoff, oldest first.
	ListPendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]*Order, error)
}
