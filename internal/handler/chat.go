// Package handler exposes the HTTP surface: chat streaming, conversation
// CRUD, agent listings, demo records and health.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/middleware"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/orchestrator"
	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/pkg/logger"
	"github.com/swadesai/support-agents/pkg/metrics"
)

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(st *store.Store, orch *orchestrator.Orchestrator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{store: st, orchestrator: orch, logger: log}
}

// SendMessage handles POST /api/chat/messages. The response is an SSE
// stream of data-only frames.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The authenticated subject wins over whatever the body claims.
	if subject := middleware.GetUserID(ctx); subject != "" {
		req.UserID = subject
	}
	if req.Message == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "Message and userId are required")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// IDs are UUIDs; a malformed one cannot name a conversation, so skip
	// the lookup and answer the same way an unknown ID does.
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
	}

	conversationID, err := h.orchestrator.Begin(ctx, &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.logger.Error("failed to start chat turn", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	for ev := range h.orchestrator.Stream(ctx, req.Message, req.UserID, conversationID) {
		if err := writeSSE(w, flusher, ev); err != nil {
			h.logger.Warn("SSE client gone", zap.String("conversation_id", conversationID))
			return
		}
	}
}

// GetConversation handles GET /api/chat/conversations/{id}.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := h.store.GetConversationWithMessages(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.logger.Error("failed to load conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// ListConversations handles GET /api/chat/conversations?userId=.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if subject := middleware.GetUserID(r.Context()); subject != "" {
		userID = subject
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	items, err := h.store.ListUserConversations(r.Context(), userID, store.DefaultConversationLimit)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

// DeleteConversation handles DELETE /api/chat/conversations/{id}.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteConversation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.logger.Error("failed to delete conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation deleted",
	})
}

// writeSSE emits one data-only SSE frame.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev model.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
