package publishing

import "errors"

// ErrPublishInProgress is returned when a post cannot be rescheduled because
// its publication job is already running.
var ErrPublishInProgress = errors.New("post publication in progress")
