// Package httpserver runs an http.Handler until its context is cancelled and
// then drains in-flight requests within a shutdown timeout. It also provides
// liveness and readiness handlers for container probes.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log, 2*time.Second, map[string]httpserver.Check{
//		"mongo": mongo.Healthcheck(client),
//		"redis": redis.Healthcheck(rdb),
//	}))
//	err := srv.Run(ctx, r)
package httpserver
