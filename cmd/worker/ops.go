package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
)

// opsRouter serves metrics, health probes and per-queue counts.
func opsRouter(reg *prometheus.Registry, checks map[string]httpserver.Check, inspector queue.Inspector, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, 5*time.Second, checks))
	r.Get("/queues", func(w http.ResponseWriter, r *http.Request) {
		stats := make(map[string]queue.QueueStats, len(jobs.Queues()))
		for _, name := range jobs.Queues() {
			s, err := inspector.Stats(r.Context(), name)
			if err != nil {
				log.WarnContext(r.Context(), "queue stats failed", logger.Queue(name), logger.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			stats[name] = s
		}
		httpserver.WriteJSON(w, http.StatusOK, stats)
	})
	return r
}
