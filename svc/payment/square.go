package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	square "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
)

var squareBaseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

// SquareConfig holds configuration for the Square gateway.
type SquareConfig struct {
	AccessToken string `env:"SQUARE_ACCESS_TOKEN"`
	Environment string `env:"SQUARE_ENVIRONMENT" envDefault:"production"`
	BaseURL     string `env:"SQUARE_BASE_URL"`
	// MaxAttempts bounds SDK-level retries; the job queue retries on top.
	MaxAttempts uint `env:"SQUARE_MAX_ATTEMPTS" envDefault:"1"`
}

// SquareGateway checks Square payments.
type SquareGateway struct {
	sdk *sqclient.Client
}

func NewSquareGateway(cfg SquareConfig) (*SquareGateway, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("%w: square access token is required", ErrInvalidConfig)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = squareBaseURLs[strings.ToLower(cfg.Environment)]
		if !ok {
			return nil, fmt.Errorf("%w: square environment %q", ErrInvalidConfig, cfg.Environment)
		}
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
		sqoption.WithMaxAttempts(max(cfg.MaxAttempts, 1)),
	)
	return &SquareGateway{sdk: sdk}, nil
}

func (g *SquareGateway) Name() string { return "square" }

// CheckStatus fetches the payment by id. A non-empty scopeID is the Square
// location the payment must belong to.
func (g *SquareGateway) CheckStatus(ctx context.Context, externalOrderID, scopeID string) (*CheckResult, error) {
	resp, err := g.sdk.Payments.Get(ctx, &square.GetPaymentsRequest{PaymentID: externalOrderID})
	if err != nil {
		var apiErr *sqcore.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: square payment %q", ErrPaymentNotFound, externalOrderID)
		}
		return nil, errors.Join(ErrGatewayUnavailable, fmt.Errorf("square get payment %q: %w", externalOrderID, err))
	}

	p := resp.GetPayment()
	if p == nil {
		return nil, fmt.Errorf("%w: square payment %q", ErrPaymentNotFound, externalOrderID)
	}
	if scopeID != "" && deref(p.GetLocationID()) != scopeID {
		return nil, fmt.Errorf("%w: square payment %q is not in location %q", ErrPaymentNotFound, externalOrderID, scopeID)
	}

	rawStatus := deref(p.GetStatus())
	status := mapSquareStatus(rawStatus)

	var amount int64
	if money := p.GetAmountMoney(); money != nil && money.GetAmount() != nil {
		amount = *money.GetAmount()
	}

	var paidAt *time.Time
	if status == StatusSuccess {
		if t, err := time.Parse(time.RFC3339, deref(p.GetUpdatedAt())); err == nil {
			paidAt = &t
		}
	}

	method := strings.ToLower(deref(p.GetSourceType()))
	if method == "" {
		method = "square"
	}

	return newResult(status, amount, method, paidAt, map[string]any{
		"payment_id": deref(p.GetID()),
		"status":     rawStatus,
	}), nil
}

// mapSquareStatus maps a Square payment status. Unknown statuses stay pending.
func mapSquareStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "COMPLETED":
		return StatusSuccess
	case "CANCELED", "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
