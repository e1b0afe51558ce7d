package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
)

// Sweeper enqueues a payment check for every order that has been pending
// for too long. It backs the sweepPendingPayments periodic task.
type Sweeper struct {
	orders order.Repository
	client *jobs.Client
	minAge time.Duration
	batch  int
	logger *slog.Logger
	now    func() time.Time
}

// SweeperConfig controls which orders the sweeper picks up.
type SweeperConfig struct {
	MinAge    time.Duration `env:"PAYMENT_SWEEP_MIN_AGE" envDefault:"10m"`
	BatchSize int           `env:"PAYMENT_SWEEP_BATCH" envDefault:"500"`
}

func NewSweeper(orders order.Repository, client *jobs.Client, cfg SweeperConfig, log *slog.Logger) *Sweeper {
	if cfg.MinAge <= 0 {
		cfg.MinAge = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		orders: orders,
		client: client,
		minAge: cfg.MinAge,
		batch:  cfg.BatchSize,
		logger: log.With(logger.Component("payment.sweeper")),
		now:    time.Now,
	}
}

// Sweep enqueues missing checks. Orders that already have a check pending
// are skipped.
func (s *Sweeper) Sweep(ctx context.Context) error {
	pending, err := s.orders.ListPendingPayments(ctx, s.now().Add(-s.minAge), s.batch)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	var enqueued, skipped int
	for _, o := range pending {
		if o.PlatformOrderID == "" {
			skipped++
			continue
		}
		_, created, err := s.client.EnqueueIfAbsent(ctx, jobs.CheckPaymentStatus{
			OrderID:         o.ID,
			ExternalOrderID: o.PlatformOrderID,
		})
		if err != nil {
			return fmt.Errorf("enqueue payment check for order %s: %w", o.ID, err)
		}
		if created {
			enqueued++
		} else {
			skipped++
		}
	}

	s.logger.InfoContext(ctx, "pending payment sweep finished",
		slog.Int("found", len(pending)),
		slog.Int("enqueued", enqueued),
		slog.Int("skipped", skipped))
	return nil
}
