package jobs

import "errors"

// ErrInvalidPayload is returned for payloads that fail validation. Handlers
// treat it as terminal.
var ErrInvalidPayload = errors.New("invalid job payload")
