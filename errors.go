package shopflow

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoGateway     = errors.New("no payment gateway configured")
)
