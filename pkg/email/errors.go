package email

import "errors"

var (
	// ErrFailedToSendEmail wraps transport failures that may succeed on retry
	ErrFailedToSendEmail = errors.New("failed to send email")

	// ErrRejected is returned when the provider refused the message itself
	ErrRejected = errors.New("email rejected by provider")

	ErrInvalidParams = errors.New("invalid email parameters")
	ErrInvalidConfig = errors.New("invalid email configuration")
)
