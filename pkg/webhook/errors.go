package webhook

import "errors"

var (
	ErrDeliveryFailed   = errors.New("webhook delivery failed")
	ErrPermanentFailure = errors.New("permanent webhook failure")
	ErrCircuitOpen      = errors.New("webhook circuit breaker is open")
	ErrInvalidURL       = errors.New("invalid webhook URL")
	ErrInvalidEvent     = errors.New("invalid webhook event")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
