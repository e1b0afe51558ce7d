package order

import "time"

// PaymentStatus is the reconciled state of an order payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status can no longer change through reconciliation.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Payment is the payment sub-document of an order. Amount is in minor units.
type Payment struct {
	Method    string        `bson:"method" json:"method"`
	Status    PaymentStatus `bson:"status" json:"status"`
	Amount    int64         `bson:"amount" json:"amount"`
	Currency  string        `bson:"currency,omitempty" json:"currency,omitempty"`
	Reference string        `bson:"reference,omitempty" json:"reference,omitempty"`
	PaidAt    *time.Time    `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
}

// Order holds the fields of an order that payment reconciliation reads and writes.
type Order struct {
	ID              string    `bson:"_id" json:"id"`
	CustomerEmail   string    `bson:"customer_email,omitempty" json:"customerEmail,omitempty"`
	Payment         Payment   `bson:"payment" json:"payment"`
	PlatformOrderID string    `bson:"platform_order_id,omitempty" json:"platformOrderId,omitempty"`
	PlatformSource  string    `bson:"platform_source,omitempty" json:"platformSource,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Settle returns a copy of p moved to status, overwriting only the
// reconciled fields. Settling a terminal payment fails with ErrPaymentSettled.
func (p Payment) Settle(status PaymentStatus, method string, amount int64, paidAt *time.Time) (Payment, error) {
	if p.Status.Terminal() {
		return p, ErrPaymentSettled
	}
	if !status.Terminal() {
		return p, ErrInvalidTransition
	}

	next := p
	next.Status = status
	if method != "" {
		next.Method = method
	}
	if amount > 0 {
		next.Amount = amount
	}
	next.PaidAt = nil
	if status == PaymentSuccess {
		next.PaidAt = paidAt
	}
	return next, nil
}
