package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler executes jobs of one type.
	Handler interface {
		JobType() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	HandlerFunc[T Payload]  func(ctx context.Context, payload T) error
	PeriodicHandlerFunc     func(ctx context.Context) error
)

// NewHandler binds a typed function to the job type of T.
// Payloads that fail to decode are terminal: retrying cannot fix them.
func NewHandler[T Payload](handler HandlerFunc[T]) Handler {
	var payload T
	return &typedHandler[T]{
		jobType: payload.JobType(),
		handler: handler,
	}
}

// NewPeriodicHandler creates a handler for payload-less periodic jobs.
func NewPeriodicHandler(name string, handler PeriodicHandlerFunc) Handler {
	return &periodicHandler{
		name:    name,
		handler: handler,
	}
}

type typedHandler[T Payload] struct {
	jobType string
	handler HandlerFunc[T]
}

func (h *typedHandler[T]) JobType() string {
	return h.jobType
}

func (h *typedHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return Terminal(fmt.Errorf("decode %s payload: %w", h.jobType, err))
	}
	return h.handler(ctx, t)
}

type periodicHandler struct {
	name    string
	handler PeriodicHandlerFunc
}

func (h *periodicHandler) JobType() string {
	return h.name
}

func (h *periodicHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.handler(ctx)
}

// periodicPayload is the payload enqueued by the Scheduler
type periodicPayload string

func (p periodicPayload) JobType() string { return string(p) }
