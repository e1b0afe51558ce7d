package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/shopflow/svc/order"
)

// Status is the gateway-neutral outcome of a payment check.
type Status = order.PaymentStatus

const (
	StatusPending = order.PaymentPending
	StatusSuccess = order.PaymentSuccess
	StatusFailed  = order.PaymentFailed
)

// CheckResult is what a gateway reports for one payment. Raw holds a few
// gateway fields for logs only; nothing downstream reads it.
type CheckResult struct {
	Success bool
	Status  Status
	Amount  int64
	Method  string
	PaidAt  *time.Time
	Raw     map[string]any
}

// Gateway asks an external payment provider for the state of a payment.
type Gateway interface {
	Name() string
	// CheckStatus fails with ErrPaymentNotFound when the provider does not
	// know externalOrderID, and with ErrGatewayUnavailable when it could not
	// be asked.
	CheckStatus(ctx context.Context, externalOrderID, scopeID string) (*CheckResult, error)
}

// Gateways resolves an order's platform source to its gateway.
type Gateways struct {
	byName   map[string]Gateway
	fallback string
}

// NewGateways registers gws. Orders without a platform source use fallback.
func NewGateways(fallback string, gws ...Gateway) (*Gateways, error) {
	g := &Gateways{byName: make(map[string]Gateway, len(gws)), fallback: fallback}
	for _, gw := range gws {
		if _, dup := g.byName[gw.Name()]; dup {
			return nil, fmt.Errorf("%w: gateway %q registered twice", ErrInvalidConfig, gw.Name())
		}
		g.byName[gw.Name()] = gw
	}
	if _, ok := g.byName[fallback]; !ok && len(gws) > 0 {
		return nil, fmt.Errorf("%w: default gateway %q is not registered", ErrInvalidConfig, fallback)
	}
	return g, nil
}

// Resolve returns the gateway for source.
func (g *Gateways) Resolve(source string) (Gateway, error) {
	if source == "" {
		source = g.fallback
	}
	gw, ok := g.byName[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, source)
	}
	return gw, nil
}

func newResult(status Status, amount int64, method string, paidAt *time.Time, raw map[string]any) *CheckResult {
	return &CheckResult{
		Success: status == StatusSuccess,
		Status:  status,
		Amount:  amount,
		Method:  method,
		PaidAt:  paidAt,
		Raw:     raw,
	}
}
