package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/handler"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
	"github.com/dmitrymomot/shopflow/svc/post"
	"github.com/dmitrymomot/shopflow/svc/publishing"
)

type fixture struct {
	router http.Handler
	store  *queue.MemoryStorage
	posts  *post.MemoryRepository
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	store := queue.NewMemoryStorage()
	enq, err := queue.NewEnqueuer(store)
	require.NoError(t, err)
	client := jobs.NewClient(enq)

	orders := order.NewMemoryRepository()
	require.NoError(t, orders.Create(ctx, &order.Order{
		ID:              "ord_1",
		PlatformOrderID: "12345",
		Payment:         order.Payment{Status: order.PaymentPending, Amount: 500000},
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	posts := post.NewMemoryRepository()
	require.NoError(t, posts.Create(ctx, &post.Post{
		ID:     "post_1",
		Title:  "Launch",
		UserID: "user_1",
		Platforms: []post.PlatformMetadata{
			{Platform: "facebook", Status: post.StatusDraft},
			{Platform: "x", Status: post.StatusDraft},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	log := slog.New(slog.DiscardHandler)
	sched := publishing.NewScheduler(posts, client,
		publishing.WithSchedulerLogger(log),
		publishing.WithSchedulerClock(func() time.Time { return now }))

	a := newAPI(orders, posts, client, sched, log)
	checks := map[string]httpserver.Check{"store": func(context.Context) error { return nil }}
	return &fixture{router: a.router(checks), store: store, posts: posts, now: now}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp handler.JSONResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestRequestPaymentCheck(t *testing.T) {
	t.Parallel()

	t.Run("enqueues a keyed delayed check", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, resp := f.do(t, http.MethodPost, "/orders/ord_1/payment-checks",
			`{"externalOrderId":"12345","scopeId":"loc_1","delaySeconds":60}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		data := resp.Data.(map[string]any)
		assert.Equal(t, jobs.QueueOrders, data["queue"])
		assert.Equal(t, "ord_1", data["key"])
		assert.Equal(t, jobs.TypeCheckPaymentStatus, data["type"])

		job, err := f.store.GetJob(context.Background(), jobs.QueueOrders, "ord_1")
		require.NoError(t, err)
		assert.Equal(t, queue.JobStatusWaiting, job.Status)
		assert.True(t, job.RunAt.After(time.Now().Add(50*time.Second)))

		var payload jobs.CheckPaymentStatus
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, jobs.CheckPaymentStatus{OrderID: "ord_1", ExternalOrderID: "12345", ScopeID: "loc_1"}, payload)
	})

	t.Run("pending check conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, _ := f.do(t, http.MethodPost, "/orders/ord_1/payment-checks", `{"externalOrderId":"12345"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		rec, resp := f.do(t, http.MethodPost, "/orders/ord_1/payment-checks", `{"externalOrderId":"12345"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", resp.Error.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, resp := f.do(t, http.MethodPost, "/orders/missing/payment-checks", `{"externalOrderId":"1"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", resp.Error.Code)

		stats, err := f.store.Stats(context.Background(), jobs.QueueOrders)
		require.NoError(t, err)
		assert.Zero(t, stats.Waiting)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, resp := f.do(t, http.MethodPost, "/orders/ord_1/payment-checks", `{"delaySeconds":-1}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, resp.Error.Details, "externalOrderId")
		assert.Contains(t, resp.Error.Details, "delaySeconds")

		rec, resp = f.do(t, http.MethodPost, "/orders/ord_1/payment-checks", `{"externalOrderId":"1","delaySeconds":90000}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, resp.Error.Details, "delaySeconds")

		// Large enough to wrap around when multiplied into a Duration
		for _, delay := range []string{"9223372036854775807", "1000000000000"} {
			rec, resp = f.do(t, http.MethodPost, "/orders/ord_1/payment-checks",
				`{"externalOrderId":"1","delaySeconds":`+delay+`}`)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, delay)
			assert.Contains(t, resp.Error.Details, "delaySeconds")
		}

		stats, err := f.store.Stats(context.Background(), jobs.QueueOrders)
		require.NoError(t, err)
		assert.Zero(t, stats.Waiting)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, _ := f.do(t, http.MethodPost, "/orders/ord_1/payment-checks", `{"externalOrderId":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSchedulePost(t *testing.T) {
	t.Parallel()

	t.Run("reschedule keeps one waiting job", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		t1 := f.now.Add(time.Hour).Format(time.RFC3339)
		t2 := f.now.Add(2 * time.Hour).Format(time.RFC3339)

		rec, _ := f.do(t, http.MethodPut, "/posts/post_1/schedule", `{"scheduledAt":"`+t1+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		rec, resp := f.do(t, http.MethodPut, "/posts/post_1/schedule", `{"scheduledAt":"`+t2+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		data := resp.Data.(map[string]any)
		assert.Equal(t, t2, data["scheduledAt"])

		stats, err := f.store.Stats(context.Background(), jobs.QueueScheduledPosts)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Waiting)

		p, err := f.posts.Get(context.Background(), "post_1")
		require.NoError(t, err)
		for _, m := range p.Platforms {
			assert.Equal(t, post.StatusScheduled, m.Status)
		}
	})

	t.Run("empty body clears the schedule", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		at := f.now.Add(time.Hour).Format(time.RFC3339)

		rec, _ := f.do(t, http.MethodPut, "/posts/post_1/schedule", `{"scheduledAt":"`+at+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		rec, _ = f.do(t, http.MethodPut, "/posts/post_1/schedule", "")
		require.Equal(t, http.StatusOK, rec.Code)

		p, err := f.posts.Get(context.Background(), "post_1")
		require.NoError(t, err)
		assert.Nil(t, p.ScheduledAt)
		for _, m := range p.Platforms {
			assert.Equal(t, post.StatusDraft, m.Status)
		}

		stats, err := f.store.Stats(context.Background(), jobs.QueueScheduledPosts)
		require.NoError(t, err)
		assert.Zero(t, stats.Waiting)
	})

	t.Run("unknown post", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec, _ := f.do(t, http.MethodPut, "/posts/missing/schedule", `{"scheduledAt":null}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReads(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, resp := f.do(t, http.MethodGet, "/orders/ord_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ord_1", resp.Data.(map[string]any)["id"])

	rec, resp = f.do(t, http.MethodGet, "/posts/post_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Launch", resp.Data.(map[string]any)["title"])

	rec, _ = f.do(t, http.MethodGet, "/posts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
