package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// apiClient performs JSON calls against one platform API.
type apiClient struct {
	platform string
	http     *http.Client
	baseURL  string
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode %s request: %w", ErrInvalidRequest, c.platform, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return fmt.Errorf("%w: %s token refresh: %w", ErrUnauthorized, c.platform, err)
		}
		return errors.Join(ErrPlatformUnavailable, fmt.Errorf("%s %s %s: %w", c.platform, method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		return fmt.Errorf("%w: %s returned status %d: %s", classifyStatus(resp.StatusCode), c.platform, resp.StatusCode, msg)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrPlatformUnavailable, fmt.Errorf("decode %s response: %w", c.platform, err))
	}
	return nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrPostNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrPlatformUnavailable
	default:
		return ErrRejected
	}
}
