// Package logger builds *slog.Logger instances with per-environment defaults
// and attributes pulled from context.Context.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "shopflow-worker"),
//		logger.WithConfig(cfg.Log),
//	)
//	logger.SetAsDefault(log)
//
// Development logs text at debug level; staging and production log JSON at
// info level. LOG_LEVEL and LOG_FORMAT override either.
//
// ContextWithAttrs attaches attributes to a context so that every record
// logged with it carries them:
//
//	ctx = logger.ContextWithAttrs(ctx, logger.JobID(job.ID), logger.OrderID(p.OrderID))
//	log.InfoContext(ctx, "payment reconciled", logger.Duration(time.Since(start)))
//
// The helpers in attr.go keep attribute keys consistent. Error and Errors
// return an empty attribute for nil errors, so they can be passed unconditionally.
package logger
