package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope posted to webhook endpoints.
// ID is stable across retries of the same delivery so receivers can dedupe.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent wraps data in an envelope stamped with a new id and the current time.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
