package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sender posts events to one endpoint with retries, signing and an
// optional circuit breaker. It is safe for concurrent use.
type Sender struct {
	endpoint   string
	client     *http.Client
	secret     string
	timeout    time.Duration
	maxRetries int
	backoff    Backoff
	breaker    *CircuitBreaker
	onDelivery func(DeliveryResult)
	userAgent  string
}

// NewSender creates a sender for endpoint. Only http and https URLs are accepted.
func NewSender(endpoint string, opts ...Option) (*Sender, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, endpoint)
	}

	s := &Sender{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:    10 * time.Second,
		maxRetries: 2,
		backoff:    ExponentialBackoff{Initial: time.Second, Max: 10 * time.Second, Jitter: 0.1},
		userAgent:  "shopflow-webhook/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Endpoint returns the URL deliveries are posted to
func (s *Sender) Endpoint() string {
	return s.endpoint
}

// Deliver posts event, retrying temporary failures. 4xx responses other than
// 408, 425 and 429 are permanent and not retried.
func (s *Sender) Deliver(ctx context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidEvent)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return errors.Join(ErrDeliveryFailed, lastErr, ctx.Err())
			case <-time.After(s.backoff.Next(attempt - 1)):
			}
		}

		status, err := s.attempt(ctx, event, body, attempt)

		if s.breaker != nil {
			if err == nil {
				s.breaker.RecordSuccess()
			} else {
				s.breaker.RecordFailure()
			}
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if isPermanent(status) {
			return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
		if s.breaker != nil && !s.breaker.Allow() {
			return errors.Join(ErrCircuitOpen, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, s.maxRetries+1, lastErr)
}

func (s *Sender) attempt(ctx context.Context, event Event, body []byte, attempt int) (int, error) {
	start := time.Now()
	status, err := s.post(ctx, event, body)

	if s.onDelivery != nil {
		s.onDelivery(DeliveryResult{
			EventID:    event.ID,
			Attempt:    attempt,
			StatusCode: status,
			Duration:   time.Since(start),
			Err:        err,
		})
	}
	return status, err
}

func (s *Sender) post(ctx context.Context, event Event, body []byte) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	if event.ID != "" {
		req.Header.Set(HeaderEventID, event.ID)
	}
	if s.secret != "" {
		ts := time.Now().Unix()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderSignature, Sign(s.secret, ts, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.ReplaceAll(strings.TrimSpace(string(snippet)), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg != "" {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, msg)
	}
	return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
}

func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
