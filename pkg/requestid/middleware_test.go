package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/requestid"
)

func serve(t *testing.T, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	requestid.Middleware(next).ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id when not provided", func(t *testing.T) {
		t.Parallel()
		var seen string
		rec := serve(t, "", func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		})

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("reuses valid incoming id", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"abc123", "ABC-123_xyz", "550e8400-e29b-41d4-a716-446655440000"} {
			var seen string
			rec := serve(t, id, func(w http.ResponseWriter, r *http.Request) {
				seen = requestid.FromContext(r.Context())
			})
			assert.Equal(t, id, seen)
			assert.Equal(t, id, rec.Header().Get(requestid.Header))
		}
	})

	t.Run("replaces invalid incoming id", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"test request id", "test/request", "<script>", strings.Repeat("a", 129)} {
			var seen string
			serve(t, id, func(w http.ResponseWriter, r *http.Request) {
				seen = requestid.FromContext(r.Context())
			})
			assert.NotEmpty(t, seen)
			assert.NotEqual(t, id, seen)
		}
	})

	t.Run("log records carry the id", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

		serve(t, "req-42", func(w http.ResponseWriter, r *http.Request) {
			log.InfoContext(r.Context(), "handled")
		})

		assert.Contains(t, buf.String(), "request_id=req-42")
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := requestid.WithContext(context.Background(), "test-id")
	assert.Equal(t, "test-id", requestid.FromContext(ctx))
	assert.Empty(t, requestid.FromContext(context.Background()))
}
