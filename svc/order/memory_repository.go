package order

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and local runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*Order), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("create order %q: already exists", o.ID)
	}
	now := r.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Payment.Status == "" {
		o.Payment.Status = PaymentPending
	}
	r.orders[o.ID] = clone(o)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o), nil
}

func (r *MemoryRepository) SettlePayment(_ context.Context, id string, payment Payment) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Payment.Status != PaymentPending {
		return nil, ErrPaymentSettled
	}
	o.Payment = payment
	o.UpdatedAt = r.now()
	return clone(o), nil
}

func (r *MemoryRepository) ListPendingPayments(_ context.Context, createdBefore time.Time, limit int) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Order
	for _, o := range r.orders {
		if o.Payment.Status == PaymentPending && o.CreatedAt.Before(createdBefore) {
			out = append(out, clone(o))
		}
	}
	slices.SortFunc(out, func(a, b *Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(o *Order) *Order {
	c := *o
	if o.Payment.PaidAt != nil {
		t := *o.Payment.PaidAt
		c.Payment.PaidAt = &t
	}
	return &c
}
