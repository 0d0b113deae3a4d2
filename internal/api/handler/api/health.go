package api

import (
	"context"
	"net/http"

	"github.com/newthinker/finsight/internal/api/response"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	db      Pinger
	version string
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Health reports liveness and database reachability.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"version":  h.version,
		"database": "ok",
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	response.JSON(w, status, body)
}
