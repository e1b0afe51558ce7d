package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/shopflow/pkg/binder"
	"github.com/dmitrymomot/shopflow/pkg/logger"
)

// ErrorHandlerConfig configures the default error handler
type ErrorHandlerConfig struct {
	// Map translates domain errors into HTTPError or ValidationError.
	// Errors it returns unchanged fall back to the built-in classification.
	Map func(error) error
}

// NewErrorHandler creates the JSON error handler. Client errors are logged
// at WARN and server errors at ERROR.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		if cfg.Map != nil {
			err = cfg.Map(err)
		}
		err = classifyBindError(err)

		resp := JSONError(err).(*jsonResponse)
		logError(log, ctx, err, resp.status)
		if renderErr := resp.Render(ctx.ResponseWriter(), ctx.Request()); renderErr != nil {
			log.ErrorContext(ctx, "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}

// classifyBindError gives binder failures a client status.
func classifyBindError(err error) error {
	switch {
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		return fmt.Errorf("%w: %w", ErrUnsupportedMediaType, err)
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrFailedToParsePath):
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	default:
		return err
	}
}

func logError(log *slog.Logger, ctx Context, err error, status int) {
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	r := ctx.Request()
	log.LogAttrs(r.Context(), level, "request error",
		logger.Error(err),
		slog.Int("status_code", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.Component("error_handler"),
	)
}
