package platform

import "errors"

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrCredentialsNotFound = errors.New("platform credentials not found")
	ErrUnauthorized        = errors.New("platform rejected credentials")
	ErrPlatformUnavailable = errors.New("platform unavailable")
	ErrRejected            = errors.New("platform rejected request")
	ErrPostNotFound        = errors.New("post not found on platform")
	ErrNotSupported        = errors.New("operation not supported by platform")
	ErrInvalidRequest      = errors.New("invalid publish request")
)
