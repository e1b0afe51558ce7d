package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/shopflow/handler"
	"github.com/dmitrymomot/shopflow/pkg/binder"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/pkg/requestid"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
	"github.com/dmitrymomot/shopflow/svc/post"
	"github.com/dmitrymomot/shopflow/svc/publishing"
)

const maxPaymentCheckDelay = 24 * time.Hour

type (
	orderReader interface {
		Get(ctx context.Context, id string) (*order.Order, error)
	}
	postReader interface {
		Get(ctx context.Context, id string) (*post.Post, error)
	}
	jobEnqueuer interface {
		Enqueue(ctx context.Context, p jobs.Payload, opts ...queue.EnqueueOption) (*queue.JobHandle, error)
	}
	postScheduler interface {
		Schedule(ctx context.Context, postID string, at *time.Time) (*post.Post, error)
	}
)

type api struct {
	orders    orderReader
	posts     postReader
	jobs      jobEnqueuer
	schedule  postScheduler
	validate  *validator.Validate
	log       *slog.Logger
	errorFunc handler.ErrorHandler
}

func newAPI(orders orderReader, posts postReader, enq jobEnqueuer, schedule postScheduler, log *slog.Logger) *api {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &api{
		orders:    orders,
		posts:     posts,
		jobs:      enq,
		schedule:  schedule,
		validate:  v,
		log:       log,
		errorFunc: handler.NewErrorHandler(log, handler.ErrorHandlerConfig{Map: mapError}),
	}
}

// router mounts the API routes. checks back the readiness probe.
func (a *api) router(checks map[string]httpserver.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(a.log, 5*time.Second, checks))

	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", wrap(a, a.getOrder))
		r.Post("/payment-checks", wrap(a, a.requestPaymentCheck))
	})
	r.Route("/posts/{id}", func(r chi.Router) {
		r.Get("/", wrap(a, a.getPost))
		r.Put("/schedule", wrap(a, a.schedulePost))
	})
	return r
}

func wrap[R any](a *api, h handler.HandlerFunc[R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binder.JSON(), binder.Path(chi.URLParam)),
		handler.WithErrorHandler[R](a.errorFunc),
	)
}

type byIDRequest struct {
	ID string `path:"id" json:"-"`
}

func (a *api) getOrder(ctx handler.Context, req byIDRequest) handler.Response {
	o, err := a.orders.Get(ctx, req.ID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(o)
}

func (a *api) getPost(ctx handler.Context, req byIDRequest) handler.Response {
	p, err := a.posts.Get(ctx, req.ID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(p)
}

type paymentCheckRequest struct {
	OrderID         string `path:"id" json:"-"`
	ExternalOrderID string `json:"externalOrderId" validate:"required,max=128"`
	ScopeID         string `json:"scopeId,omitempty" validate:"max=128"`
	DelaySeconds    int    `json:"delaySeconds,omitempty" validate:"min=0"`
}

// requestPaymentCheck enqueues a payment status check for an existing order.
// A check already pending for the order is reported as a conflict.
func (a *api) requestPaymentCheck(ctx handler.Context, req paymentCheckRequest) handler.Response {
	if err := a.check(req); err != nil {
		return handler.Fail(err)
	}
	// Compared in seconds; huge values overflow a Duration
	if req.DelaySeconds > int(maxPaymentCheckDelay/time.Second) {
		verr := handler.NewValidationError()
		verr.Add("delaySeconds", fmt.Sprintf("must be at most %d", int(maxPaymentCheckDelay/time.Second)))
		return handler.Fail(verr)
	}
	delay := time.Duration(req.DelaySeconds) * time.Second

	if _, err := a.orders.Get(ctx, req.OrderID); err != nil {
		return handler.Fail(err)
	}

	h, err := a.jobs.Enqueue(ctx, jobs.CheckPaymentStatus{
		OrderID:         req.OrderID,
		ExternalOrderID: req.ExternalOrderID,
		ScopeID:         req.ScopeID,
	}, queue.WithDelay(delay))
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(h, handler.WithJSONStatus(http.StatusAccepted))
}

type scheduleRequest struct {
	PostID      string     `path:"id" json:"-"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// schedulePost sets, moves or clears the publication time of a post.
func (a *api) schedulePost(ctx handler.Context, req scheduleRequest) handler.Response {
	p, err := a.schedule.Schedule(ctx, req.PostID, req.ScheduledAt)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(p)
}

func (a *api) check(v any) error {
	err := a.validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := handler.NewValidationError()
	for _, fe := range verrs {
		out.Add(fe.Field(), validationMessage(fe))
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}

// mapError gives domain errors their HTTP status.
func mapError(err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, post.ErrNotFound):
		return fmt.Errorf("%w: %w", handler.ErrNotFound, err)
	case errors.Is(err, queue.ErrDuplicateJobKey):
		return fmt.Errorf("%w: a check is already pending for this order", handler.ErrConflict)
	case errors.Is(err, publishing.ErrPublishInProgress):
		return fmt.Errorf("%w: %w", handler.ErrConflict, err)
	case errors.Is(err, jobs.ErrInvalidPayload):
		return fmt.Errorf("%w: %w", handler.ErrUnprocessableEntity, err)
	case errors.Is(err, queue.ErrQueueUnavailable):
		return fmt.Errorf("%w: %w", handler.ErrServiceUnavailable, err)
	default:
		return err
	}
}
