package handler

import (
	"net/http"
	"time"

	"github.com/swadesai/support-agents/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store   *store.Store
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st, started: time.Now()}
}

// Health handles GET /api/health. The database check decides between
// healthy (200) and degraded (503).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	database := "up"
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		database = "down"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"services": map[string]string{
			"api":      "up",
			"database": database,
		},
	})
}
