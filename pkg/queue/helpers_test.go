package queue_test

import (
	"io"
	"log/slog"
)

type testPayload struct {
	Message string `json:"message"`
	Value   int    `json:"value"`
}

func (testPayload) JobType() string { return "test_job" }

type otherPayload struct {
	ID string `json:"id"`
}

func (otherPayload) JobType() string { return "other_job" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
