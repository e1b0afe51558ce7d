package webhook

import (
	"net/http"
	"time"
)

// DeliveryResult describes a single delivery attempt
type DeliveryResult struct {
	EventID    string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Option configures a Sender
type Option func(*Sender)

// WithHTTPClient sets the client used for deliveries
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSecret enables HMAC signing of every delivery
func WithSecret(secret string) Option {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithTimeout bounds each HTTP attempt. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed delivery is retried. Default is 2.
func WithMaxRetries(n int) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the delay strategy between retries
func WithBackoff(b Backoff) Option {
	return func(s *Sender) {
		if b != nil {
			s.backoff = b
		}
	}
}

// WithCircuitBreaker guards the endpoint with cb
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(s *Sender) {
		s.breaker = cb
	}
}

// WithOnDelivery registers a callback invoked after each attempt
func WithOnDelivery(fn func(DeliveryResult)) Option {
	return func(s *Sender) {
		s.onDelivery = fn
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(s *Sender) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}
