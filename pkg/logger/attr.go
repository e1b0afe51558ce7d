package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// JobID records the queue job identifier under the key "job_id".
// If id is nil, it returns an empty Attr.
func JobID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("job_id", id)
}

// JobType records the job type under the key "job_type".
func JobType(jobType string) slog.Attr {
	return slog.String("job_type", jobType)
}

// JobKey records the idempotency key of a job under the key "job_key".
func JobKey(key string) slog.Attr {
	return slog.String("job_key", key)
}

// Queue records the queue name under the key "queue".
func Queue(name string) slog.Attr {
	return slog.String("queue", name)
}

// OrderID records the order identifier under the key "order_id".
// If id is nil, it returns an empty Attr.
func OrderID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("order_id", id)
}

// PostID records the post identifier under the key "post_id".
// If id is nil, it returns an empty Attr.
func PostID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("post_id", id)
}

// Platform records the publishing platform under the key "platform".
func Platform(name string) slog.Attr {
	return slog.String("platform", name)
}

// Gateway records the payment gateway under the key "gateway".
func Gateway(name string) slog.Attr {
	return slog.String("gateway", name)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
