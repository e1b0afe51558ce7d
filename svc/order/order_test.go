package order_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/svc/order"
)

func TestPayment_Settle(t *testing.T) {
	t.Parallel()

	paidAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pending := order.Payment{Method: "card", Status: order.PaymentPending, Amount: 100, Currency: "USD", Reference: "ref-1"}

	t.Run("success keeps unrelated fields", func(t *testing.T) {
		t.Parallel()

		next, err := pending.Settle(order.PaymentSuccess, "", 500000, &paidAt)
		require.NoError(t, err)
		assert.Equal(t, order.Payment{
			Method:    "card",
			Status:    order.PaymentSuccess,
			Amount:    500000,
			Currency:  "USD",
			Reference: "ref-1",
			PaidAt:    &paidAt,
		}, next)
		assert.Equal(t, order.PaymentPending, pending.Status)
	})

	t.Run("failed has no paid time", func(t *testing.T) {
		t.Parallel()

		next, err := pending.Settle(order.PaymentFailed, "square", 0, &paidAt)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentFailed, next.Status)
		assert.Equal(t, "square", next.Method)
		assert.Equal(t, int64(100), next.Amount)
		assert.Nil(t, next.PaidAt)
	})

	t.Run("terminal payments do not regress", func(t *testing.T) {
		t.Parallel()

		settled := pending
		settled.Status = order.PaymentSuccess
		_, err := settled.Settle(order.PaymentFailed, "", 0, nil)
		assert.ErrorIs(t, err, order.ErrPaymentSettled)
	})

	t.Run("pending is not a settlement", func(t *testing.T) {
		t.Parallel()

		_, err := pending.Settle(order.PaymentPending, "", 0, nil)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})
}

func TestPaymentStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, order.PaymentPending.Terminal())
	assert.True(t, order.PaymentSuccess.Terminal())
	assert.True(t, order.PaymentFailed.Terminal())
}
