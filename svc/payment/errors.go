package payment

import "errors"

var (
	// ErrGatewayUnavailable wraps network, timeout and 5xx failures of a gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotFound is returned when the gateway does not know the external id
	ErrPaymentNotFound = errors.New("payment not found at gateway")

	// ErrUnknownGateway is returned when no gateway is registered for an order source
	ErrUnknownGateway = errors.New("unknown payment gateway")

	ErrInvalidConfig = errors.New("invalid payment gateway configuration")
)
