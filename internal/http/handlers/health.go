package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/salonhq/booking-agent/pkg/logging"
)

// Pinger is the storage round-trip check, satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness plus a storage round-trip.
type HealthHandler struct {
	db     Pinger
	logger *logging.Logger
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(db Pinger, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{db: db, logger: logger}
}

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check: database unreachable", "error", err)
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
