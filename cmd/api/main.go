// Command api serves the thin HTTP front end: payment check requests, post
// scheduling and entity reads.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/shopflow"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("api exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := shopflow.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName+"-api"),
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

	a := newAPI(c.Orders, c.Posts, c.Jobs, c.PostSchedule, log)
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, a.router(c.Checks()))
}
