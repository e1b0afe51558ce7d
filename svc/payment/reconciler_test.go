package payment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/order"
	"github.com/dmitrymomot/shopflow/svc/payment"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	orders []order.Order
}

func (r *recorder) NotifyPaymentSuccess(_ context.Context, o *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *o)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func setup(t *testing.T, gw *fakeGateway, seed ...*order.Order) (*payment.Reconciler, *order.MemoryRepository, *recorder) {
	t.Helper()

	repo := order.NewMemoryRepository()
	for _, o := range seed {
		require.NoError(t, repo.Create(context.Background(), o))
	}
	gws, err := payment.NewGateways(gw.name, gw)
	require.NoError(t, err)

	rec := &recorder{}
	r := payment.NewReconciler(repo, gws,
		payment.WithNotifiers(rec),
		payment.WithClock(func() time.Time { return fixedNow }),
		payment.WithGatewayTimeout(time.Second),
	)
	return r, repo, rec
}

func result(status payment.Status, amount int64) func(string, string) (*payment.CheckResult, error) {
	return func(string, string) (*payment.CheckResult, error) {
		return &payment.CheckResult{Success: status == payment.StatusSuccess, Status: status, Amount: amount, Method: "card"}, nil
	}
}

func TestReconciler_SettlesSuccessAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusSuccess, 500000)}
	r, repo, rec := setup(t, gw, &order.Order{ID: "12345", PlatformOrderID: "txn_1"})

	job := jobs.CheckPaymentStatus{OrderID: "12345", ExternalOrderID: "txn_1"}
	require.NoError(t, r.Handle(context.Background(), job))

	o, err := repo.Get(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentSuccess, o.Payment.Status)
	assert.Equal(t, int64(500000), o.Payment.Amount)
	assert.Equal(t, "card", o.Payment.Method)
	require.NotNil(t, o.Payment.PaidAt)
	assert.True(t, fixedNow.Equal(*o.Payment.PaidAt))
	assert.Equal(t, 1, rec.count())

	// A second run finds nothing to change.
	require.NoError(t, r.Handle(context.Background(), job))
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, int32(2), gw.calls.Load())
}

func TestReconciler_Failed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusFailed, 0)}
	r, repo, rec := setup(t, gw, &order.Order{ID: "o1", Payment: order.Payment{Amount: 900}})

	require.NoError(t, r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: "o1", ExternalOrderID: "x"}))

	o, err := repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentFailed, o.Payment.Status)
	assert.Equal(t, int64(900), o.Payment.Amount)
	assert.Nil(t, o.Payment.PaidAt)
	assert.Zero(t, rec.count())
}

func TestReconciler_PendingIsNoop(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusPending, 0)}
	r, repo, rec := setup(t, gw, &order.Order{ID: "o1"})

	require.NoError(t, r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: "o1", ExternalOrderID: "x"}))

	o, err := repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, o.Payment.Status)
	assert.Zero(t, rec.count())
}

func TestReconciler_ConflictingTerminalStatusKeepsOrder(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusFailed, 0)}
	r, repo, rec := setup(t, gw, &order.Order{ID: "o1", Payment: order.Payment{Status: order.PaymentSuccess, Amount: 10}})

	require.NoError(t, r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: "o1", ExternalOrderID: "x"}))

	o, err := repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentSuccess, o.Payment.Status)
	assert.Zero(t, rec.count())
}

func TestReconciler_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		orderID   string
		fn        func(string, string) (*payment.CheckResult, error)
		retryable bool
	}{
		{
			name:    "order not found",
			orderID: "missing",
			fn:      result(payment.StatusSuccess, 1),
		},
		{
			name:    "external id unknown",
			orderID: "o1",
			fn: func(string, string) (*payment.CheckResult, error) {
				return nil, payment.ErrPaymentNotFound
			},
		},
		{
			name:    "gateway down",
			orderID: "o1",
			fn: func(string, string) (*payment.CheckResult, error) {
				return nil, errors.Join(payment.ErrGatewayUnavailable, errors.New("503"))
			},
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := &fakeGateway{name: "paddle", fn: tt.fn}
			r, repo, rec := setup(t, gw, &order.Order{ID: "o1"})

			err := r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: tt.orderID, ExternalOrderID: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, queue.IsRetryable(err))

			o, err := repo.Get(context.Background(), "o1")
			require.NoError(t, err)
			assert.Equal(t, order.PaymentPending, o.Payment.Status)
			assert.Zero(t, rec.count())
		})
	}
}

func TestReconciler_GatewayTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle"}
	gw.fn = func(string, string) (*payment.CheckResult, error) { return nil, context.DeadlineExceeded }

	r, _, _ := setup(t, gw, &order.Order{ID: "o1"})
	err := r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: "o1", ExternalOrderID: "x"})
	require.Error(t, err)
	assert.True(t, queue.IsRetryable(err))
}

func TestReconciler_ConcurrentChecksNotifyOnce(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusSuccess, 500000)}
	r, _, rec := setup(t, gw, &order.Order{ID: "12345"})

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Handle(context.Background(), jobs.CheckPaymentStatus{OrderID: "12345", ExternalOrderID: "x"}); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Equal(t, 1, rec.count())
}

func TestReconciler_WorkerEndToEnd(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "paddle", fn: result(payment.StatusSuccess, 500000)}
	r, repo, rec := setup(t, gw, &order.Order{ID: "12345", PlatformOrderID: "txn_1"})

	store := queue.NewMemoryStorage()
	enq, err := queue.NewEnqueuer(store)
	require.NoError(t, err)
	client := jobs.NewClient(enq)

	_, err = client.Enqueue(context.Background(), jobs.CheckPaymentStatus{OrderID: "12345", ExternalOrderID: "txn_1"})
	require.NoError(t, err)

	sweeper := payment.NewSweeper(repo, client, payment.SweeperConfig{}, nil)
	handlers, err := jobs.Handlers{
		CheckPaymentStatus:   r.Handle,
		SweepPendingPayments: sweeper.Sweep,
	}.ForQueue(jobs.QueueOrders)
	require.NoError(t, err)

	worker, err := queue.NewWorker(store,
		queue.WithWorkerQueue(jobs.QueueOrders),
		queue.WithPullInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, worker.RegisterHandlers(handlers...))

	require.NoError(t, worker.Start(context.Background()))
	t.Cleanup(func() { _ = worker.Stop() })

	require.Eventually(t, func() bool {
		o, err := repo.Get(context.Background(), "12345")
		return err == nil && o.Payment.Status == order.PaymentSuccess
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, rec.count())
}
