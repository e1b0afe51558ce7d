// Command worker runs one worker per queue, the periodic payment sweep and
// an ops endpoint serving /metrics and /health.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/shopflow"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("worker exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := shopflow.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName+"-worker"),
		logger.WithConfig(cfg.Log),
	)
	logger.SetAsDefault(log)

	c, err := shopflow.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("close container", logger.Error(err))
		}
	}()

	handlers, err := c.JobHandlers()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, name := range jobs.Queues() {
		qh, err := handlers.ForQueue(name)
		if err != nil {
			return err
		}
		w, err := queue.NewWorker(c.Queue, c.WorkerOptions(name)...)
		if err != nil {
			return fmt.Errorf("worker %s: %w", name, err)
		}
		if err := w.RegisterHandlers(qh...); err != nil {
			return fmt.Errorf("worker %s: %w", name, err)
		}
		g.Go(w.Run(ctx))
	}

	sched, err := queue.NewScheduler(c.Queue,
		queue.WithCheckInterval(cfg.Queue.SchedulerInterval),
		queue.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := sched.AddTask(jobs.TypeSweepPendingPayments, queue.Every(cfg.SweepInterval),
		queue.WithTaskQueue(jobs.QueueOrders)); err != nil {
		return err
	}
	g.Go(sched.Run(ctx))

	ops := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithAddr(cfg.OpsAddr), httpserver.WithLogger(log))
	g.Go(func() error {
		return ops.Run(ctx, opsRouter(c.Registry, c.Checks(), c.Queue, log))
	})

	log.Info("worker started", slog.Any("queues", jobs.Queues()))
	return g.Wait()
}
