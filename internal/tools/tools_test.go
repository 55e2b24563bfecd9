package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/store"
)

func newSeededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Seed(context.Background()))
	return st
}

func findBinding(t *testing.T, bindings []Binding, name string) Binding {
	t.Helper()
	for _, b := range bindings {
		if b.Def.Name == name {
			return b
		}
	}
	t.Fatalf("binding %s not found", name)
	return Binding{}
}

// seedUserFor returns the owner of the given order so the toolset can be
// bound to a user that actually has records.
func seedUserFor(t *testing.T, st *store.Store, orderNumber string) string {
	t.Helper()
	order, err := st.GetOrderByNumber(context.Background(), orderNumber)
	require.NoError(t, err)
	return order.UserID
}

func TestFetchOrderDetails(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()
	bindings := OrderToolset(st, seedUserFor(t, st, "ORD-2024-001"))
	fetch := findBinding(t, bindings, "fetchOrderDetails")

	t.Run("found", func(t *testing.T) {
		res := fetch.Invoke(ctx, map[string]any{"orderNumber": "ORD-2024-002"})
		assert.Equal(t, true, res["found"])
		assert.Equal(t, "TRK987654321", res["trackingNumber"])
		assert.Equal(t, "549.99", res["totalAmount"])
	})

	t.Run("not found is a result, not an error", func(t *testing.T) {
		res := fetch.Invoke(ctx, map[string]any{"orderNumber": "ORD-9999-999"})
		assert.Equal(t, false, res["found"])
		assert.Contains(t, res["message"], "ORD-9999-999")
	})
}

func TestCancelOrder(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()
	bindings := OrderToolset(st, seedUserFor(t, st, "ORD-2024-003"))
	cancel := findBinding(t, bindings, "cancelOrder")

	t.Run("processing order cancels", func(t *testing.T) {
		res := cancel.Invoke(ctx, map[string]any{"orderNumber": "ORD-2024-003"})
		assert.Equal(t, true, res["success"])
		assert.Equal(t, model.OrderProcessing, res["previousStatus"])
		assert.Equal(t, model.OrderCancelled, res["newStatus"])
	})

	t.Run("second cancel refuses", func(t *testing.T) {
		res := cancel.Invoke(ctx, map[string]any{"orderNumber": "ORD-2024-003"})
		assert.Equal(t, false, res["success"])
		assert.Equal(t, model.OrderCancelled, res["currentStatus"])

		// Status unchanged by the refused cancel.
		order, err := st.GetOrderByNumber(ctx, "ORD-2024-003")
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, order.Status)
	})

	t.Run("shipped order suggests return", func(t *testing.T) {
		res := cancel.Invoke(ctx, map[string]any{"orderNumber": "ORD-2024-002"})
		assert.Equal(t, false, res["success"])
		assert.Contains(t, res["message"], "return")
	})

	t.Run("delivered order refuses", func(t *testing.T) {
		res := cancel.Invoke(ctx, map[string]any{"orderNumber": "ORD-2024-001"})
		assert.Equal(t, false, res["success"])
		assert.Equal(t, model.OrderDelivered, res["currentStatus"])
	})
}

func TestGetOrderHistoryScopedToUser(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	john := seedUserFor(t, st, "ORD-2024-001")
	history := findBinding(t, OrderToolset(st, john), "getOrderHistory")

	res := history.Invoke(ctx, map[string]any{})
	assert.Equal(t, true, res["found"])
	assert.Equal(t, 2, res["totalOrders"])

	// A user with no orders gets a structured miss.
	empty := findBinding(t, OrderToolset(st, store.DemoUserID), "getOrderHistory")
	res = empty.Invoke(ctx, map[string]any{})
	assert.Equal(t, false, res["found"])
}

func TestRequestRefund(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()
	bindings := BillingToolset(st, store.DemoUserID)
	refund := findBinding(t, bindings, "requestRefund")

	t.Run("partial amount", func(t *testing.T) {
		res := refund.Invoke(ctx, map[string]any{
			"invoiceNumber": "INV-2024-001",
			"amount":        50.0,
			"reason":        "damaged item",
		})
		assert.Equal(t, true, res["success"])
		assert.Equal(t, "50.00", res["refundAmount"])

		payment, err := st.GetPaymentByInvoice(ctx, "INV-2024-001")
		require.NoError(t, err)
		assert.Equal(t, model.RefundRequested, payment.RefundStatus)
	})

	t.Run("existing refund refuses", func(t *testing.T) {
		res := refund.Invoke(ctx, map[string]any{"invoiceNumber": "INV-2024-001"})
		assert.Equal(t, false, res["success"])
		assert.Equal(t, model.RefundRequested, res["currentRefundStatus"])
	})

	t.Run("amount above original refuses", func(t *testing.T) {
		res := refund.Invoke(ctx, map[string]any{
			"invoiceNumber": "INV-2024-002",
			"amount":        1000000.0,
		})
		assert.Equal(t, false, res["success"])

		payment, err := st.GetPaymentByInvoice(ctx, "INV-2024-002")
		require.NoError(t, err)
		assert.Empty(t, payment.RefundStatus)
	})

	t.Run("full refund defaults to original amount", func(t *testing.T) {
		payment, err := st.GetPaymentByInvoice(ctx, "INV-2024-002")
		require.NoError(t, err)
		require.Equal(t, model.PaymentPaid, payment.Status)

		res := refund.Invoke(ctx, map[string]any{"invoiceNumber": "INV-2024-002"})
		assert.Equal(t, true, res["success"])

		updated, err := st.GetPaymentByInvoice(ctx, "INV-2024-002")
		require.NoError(t, err)
		require.NotNil(t, updated.RefundAmount)
		assert.Equal(t, payment.Amount, *updated.RefundAmount)
	})

	t.Run("non-paid invoice refuses", func(t *testing.T) {
		res := refund.Invoke(ctx, map[string]any{"invoiceNumber": "INV-2024-005"})
		assert.Equal(t, false, res["success"])
	})
}

func TestCheckRefundStatus(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()
	check := findBinding(t, BillingToolset(st, store.DemoUserID), "checkRefundStatus")

	t.Run("completed refund", func(t *testing.T) {
		res := check.Invoke(ctx, map[string]any{"invoiceNumber": "INV-2024-005"})
		assert.Equal(t, true, res["found"])
		assert.Equal(t, true, res["hasRefund"])
		assert.Equal(t, model.RefundCompleted, res["refundStatus"])
	})

	t.Run("no refund", func(t *testing.T) {
		res := check.Invoke(ctx, map[string]any{"invoiceNumber": "INV-2024-001"})
		assert.Equal(t, true, res["found"])
		assert.Equal(t, false, res["hasRefund"])
	})
}

func TestSupportTools(t *testing.T) {
	st := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "guest-1"))
	conv, err := st.CreateConversation(ctx, "guest-1")
	require.NoError(t, err)
	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "How do I reset my password?",
	}))

	bindings := SupportToolset(st, "guest-1", conv.ID)

	t.Run("searchFAQs", func(t *testing.T) {
		search := findBinding(t, bindings, "searchFAQs")
		res := search.Invoke(ctx, map[string]any{"query": "reset password"})
		assert.Equal(t, true, res["found"])
	})

	t.Run("getConversationHistory", func(t *testing.T) {
		history := findBinding(t, bindings, "getConversationHistory")
		res := history.Invoke(ctx, map[string]any{})
		assert.Equal(t, conv.ID, res["conversationId"])
		assert.Equal(t, 1, res["messageCount"])
	})

	t.Run("getUserInfo", func(t *testing.T) {
		info := findBinding(t, bindings, "getUserInfo")
		res := info.Invoke(ctx, map[string]any{})
		assert.Equal(t, true, res["found"])
		assert.Equal(t, "Guest User", res["name"])
	})
}

func TestInvokeRecoversPanic(t *testing.T) {
	b := Binding{
		Def: llm.ToolDefinition{Name: "explode"},
		Handle: func(ctx context.Context, args map[string]any) Result {
			panic("boom")
		},
	}
	res := b.Invoke(context.Background(), nil)
	assert.Equal(t, false, res["success"])
	assert.Contains(t, res["message"], "explode")
}

func TestBadArgumentsAreStructured(t *testing.T) {
	st := newSeededStore(t)
	fetch := findBinding(t, OrderToolset(st, store.DemoUserID), "fetchOrderDetails")

	res := fetch.Invoke(context.Background(), map[string]any{"orderNumber": []any{"not", "a", "string"}})
	assert.Equal(t, false, res["success"])
}
