package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swadesai/support-agents/internal/model"
)

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Seed(context.Background()))
	return st
}

func TestSeedIsIdempotent(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, st.Seed(ctx))

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 6)
}

func TestGetOrderByNumber(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	order, err := st.GetOrderByNumber(ctx, "ORD-2024-002")
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, order.Status)
	assert.Equal(t, "TRK987654321", order.TrackingNumber)
	assert.NotEmpty(t, order.Items)

	_, err = st.GetOrderByNumber(ctx, "ORD-9999-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpdateOrderStatus(ctx, "ORD-2024-001", model.OrderCancelled))

	order, err := st.GetOrderByNumber(ctx, "ORD-2024-001")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)

	assert.ErrorIs(t, st.UpdateOrderStatus(ctx, "ORD-9999-999", model.OrderCancelled), ErrNotFound)
}

func TestGetPaymentByInvoice(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	payment, err := st.GetPaymentByInvoice(ctx, "INV-2024-005")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, payment.Status)
	assert.Equal(t, model.RefundCompleted, payment.RefundStatus)
}

func TestSetRefund(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetRefund(ctx, "INV-2024-001", model.RefundRequested, 149.99))

	payment, err := st.GetPaymentByInvoice(ctx, "INV-2024-001")
	require.NoError(t, err)
	assert.Equal(t, model.RefundRequested, payment.RefundStatus)
	require.NotNil(t, payment.RefundAmount)
	assert.Equal(t, 149.99, *payment.RefundAmount)
}

func TestSearchFAQs(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	t.Run("substring match", func(t *testing.T) {
		faqs, err := st.SearchFAQs(ctx, "reset my password", "")
		require.NoError(t, err)
		require.NotEmpty(t, faqs)
		assert.Contains(t, faqs[0].Question, "password")
	})

	t.Run("category filter", func(t *testing.T) {
		faqs, err := st.SearchFAQs(ctx, "return", "returns")
		require.NoError(t, err)
		for _, f := range faqs {
			assert.Equal(t, "returns", f.Category)
		}
	})

	t.Run("capped at five", func(t *testing.T) {
		faqs, err := st.SearchFAQs(ctx, "order", "")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(faqs), FAQSearchLimit)
	})

	t.Run("no match", func(t *testing.T) {
		faqs, err := st.SearchFAQs(ctx, "zzzzzz qqqqqq", "")
		require.NoError(t, err)
		assert.Empty(t, faqs)
	})
}

func TestCountUserActivity(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	_, err := st.CreateConversation(ctx, DemoUserID)
	require.NoError(t, err)

	orders, conversations, err := st.CountUserActivity(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, orders)
	assert.Equal(t, 1, conversations)
}
