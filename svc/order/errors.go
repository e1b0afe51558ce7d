package order

import "errors"

var (
	ErrNotFound = errors.New("order not found")

	// ErrPaymentSettled is returned when a payment already reached success or failed
	ErrPaymentSettled = errors.New("order payment already settled")

	// ErrInvalidTransition is returned when settling to a non-terminal status
	ErrInvalidTransition = errors.New("invalid payment status transition")
)
