package order_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/pkg/mongo"
	"github.com/dmitrymomot/shopflow/svc/order"
)

// testRepository runs the shared contract against any Repository.
func testRepository(t *testing.T, repo order.Repository) {
	ctx := context.Background()

	newOrder := func(createdAt time.Time) *order.Order {
		return &order.Order{
			ID:            uuid.NewString(),
			CustomerEmail: "customer@example.com",
			Payment:       order.Payment{Method: "card", Amount: 1000, Currency: "USD"},
			CreatedAt:     createdAt,
		}
	}

	t.Run("create and get", func(t *testing.T) {
		o := newOrder(time.Now().Add(-time.Hour))
		require.NoError(t, repo.Create(ctx, o))

		got, err := repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPending, got.Payment.Status)
		assert.Equal(t, "customer@example.com", got.CustomerEmail)

		_, err = repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("settle once", func(t *testing.T) {
		o := newOrder(time.Now())
		require.NoError(t, repo.Create(ctx, o))

		paidAt := time.Now().UTC().Truncate(time.Millisecond)
		payment, err := o.Payment.Settle(order.PaymentSuccess, "", 500000, &paidAt)
		require.NoError(t, err)

		got, err := repo.SettlePayment(ctx, o.ID, payment)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentSuccess, got.Payment.Status)
		assert.Equal(t, int64(500000), got.Payment.Amount)
		assert.Equal(t, "customer@example.com", got.CustomerEmail)

		_, err = repo.SettlePayment(ctx, o.ID, payment)
		assert.ErrorIs(t, err, order.ErrPaymentSettled)

		_, err = repo.SettlePayment(ctx, uuid.NewString(), payment)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("concurrent settlements have one winner", func(t *testing.T) {
		o := newOrder(time.Now())
		require.NoError(t, repo.Create(ctx, o))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				status := order.PaymentSuccess
				if i%2 == 1 {
					status = order.PaymentFailed
				}
				p, _ := o.Payment.Settle(status, "", 0, nil)
				if _, err := repo.SettlePayment(ctx, o.ID, p); err == nil {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("list pending", func(t *testing.T) {
		cutoff := time.Now().Add(-10 * time.Minute)
		old := newOrder(cutoff.Add(-time.Hour))
		older := newOrder(cutoff.Add(-2 * time.Hour))
		fresh := newOrder(time.Now())
		settled := newOrder(cutoff.Add(-time.Hour))
		for _, o := range []*order.Order{old, older, fresh, settled} {
			require.NoError(t, repo.Create(ctx, o))
		}
		p, _ := settled.Payment.Settle(order.PaymentFailed, "", 0, nil)
		_, err := repo.SettlePayment(ctx, settled.ID, p)
		require.NoError(t, err)

		list, err := repo.ListPendingPayments(ctx, cutoff, 0)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, o := range list {
			ids = append(ids, o.ID)
		}
		assert.Contains(t, ids, old.ID)
		assert.Contains(t, ids, older.ID)
		assert.NotContains(t, ids, fresh.ID)
		assert.NotContains(t, ids, settled.ID)

		limited, err := repo.ListPendingPayments(ctx, cutoff, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	testRepository(t, order.NewMemoryRepository())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	repo := order.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &order.Order{ID: "1"}))

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	got.Payment.Status = order.PaymentSuccess

	again, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, again.Payment.Status)
}

func TestMongoRepository(t *testing.T) {
	url := os.Getenv("SHOPFLOW_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("SHOPFLOW_TEST_MONGODB_URL not set")
	}

	ctx := context.Background()
	db, err := mongo.Open(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       "shopflow_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	repo := order.NewMongoRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	testRepository(t, repo)
}
