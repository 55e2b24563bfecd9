package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/pkg/logger"
)

// listPageSize bounds the record listing endpoints. The demo dataset is
// small; this is a safety cap, not pagination.
const listPageSize = 100

// RecordsHandler serves read access to the demo users, orders and payments.
type RecordsHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(st *store.Store, log *logger.Logger) *RecordsHandler {
	return &RecordsHandler{store: st, logger: log}
}

// ListUsers handles GET /api/users.
func (h *RecordsHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

// GetUser handles GET /api/users/{id}.
func (h *RecordsHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": user})
}

// ListOrders handles GET /api/orders?userId=.
func (h *RecordsHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), userID, listPageSize)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": orders})
}

// GetOrder handles GET /api/orders/{id}.
func (h *RecordsHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": order})
}

// ListPayments handles GET /api/payments?userId=.
func (h *RecordsHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	payments, err := h.store.ListPaymentsByUser(r.Context(), userID, listPageSize)
	if err != nil {
		h.logger.Error("failed to list payments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": payments})
}

// GetPayment handles GET /api/payments/{id}.
func (h *RecordsHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.store.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Payment not found")
			return
		}
		h.logger.Error("failed to get payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get payment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": payment})
}
