package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swadesai/support-agents/internal/agent"
)

// AgentsHandler serves the static agent catalogue.
type AgentsHandler struct {
	registry *agent.Registry
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(registry *agent.Registry) *AgentsHandler {
	return &AgentsHandler{registry: registry}
}

// List handles GET /api/agents.
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.registry.Describe()})
}

// Capabilities handles GET /api/agents/{type}/capabilities.
func (h *AgentsHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	agentType := chi.URLParam(r, "type")
	for _, d := range h.registry.Describe() {
		if d.Type == agentType {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("Agent type '%s' not found", agentType))
}
