package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle gateway.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleTransactions is the part of the Paddle SDK the gateway uses.
type PaddleTransactions interface {
	GetTransaction(ctx context.Context, req *paddle.GetTransactionRequest) (*paddle.Transaction, error)
}

// PaddleGateway checks Paddle Billing transactions.
type PaddleGateway struct {
	client PaddleTransactions
}

// NewPaddleGateway creates a Paddle client for cfg.Environment
// ("production" or "sandbox").
func NewPaddleGateway(cfg PaddleConfig) (*PaddleGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paddle API key is required", ErrInvalidConfig)
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: paddle environment %q", ErrInvalidConfig, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}
	return NewPaddleGatewayWithClient(client), nil
}

// NewPaddleGatewayWithClient wraps an existing client.
func NewPaddleGatewayWithClient(client PaddleTransactions) *PaddleGateway {
	return &PaddleGateway{client: client}
}

func (g *PaddleGateway) Name() string { return "paddle" }

// CheckStatus looks up the transaction by id. Paddle accounts are not
// scoped, so scopeID is ignored.
func (g *PaddleGateway) CheckStatus(ctx context.Context, externalOrderID, _ string) (*CheckResult, error) {
	tx, err := g.client.GetTransaction(ctx, &paddle.GetTransactionRequest{TransactionID: externalOrderID})
	if err != nil {
		if errors.Is(err, paddle.ErrNotFound) {
			return nil, fmt.Errorf("%w: paddle transaction %q", ErrPaymentNotFound, externalOrderID)
		}
		return nil, errors.Join(ErrGatewayUnavailable, fmt.Errorf("paddle get transaction %q: %w", externalOrderID, err))
	}

	var amount int64
	if total := tx.Details.Totals.GrandTotal; total != "" {
		if amount, err = strconv.ParseInt(total, 10, 64); err != nil {
			return nil, errors.Join(ErrGatewayUnavailable,
				fmt.Errorf("paddle transaction %q: malformed grand total %q: %w", externalOrderID, total, err))
		}
	}

	status := mapPaddleStatus(string(tx.Status))

	var paidAt *time.Time
	if status == StatusSuccess && tx.BilledAt != nil {
		if t, err := time.Parse(time.RFC3339, *tx.BilledAt); err == nil {
			paidAt = &t
		}
	}

	return newResult(status, amount, "paddle", paidAt, map[string]any{
		"transaction_id": tx.ID,
		"status":         string(tx.Status),
	}), nil
}

// mapPaddleStatus maps a Paddle transaction status. Unknown statuses stay
// pending, as does past_due since Paddle keeps collecting on it.
func mapPaddleStatus(s string) Status {
	switch strings.ToLower(s) {
	case "completed", "paid":
		return StatusSuccess
	case "canceled":
		return StatusFailed
	default:
		return StatusPending
	}
}
