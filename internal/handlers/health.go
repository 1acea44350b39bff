package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
	"github.com/mini-rodalies-3d/metrosim/internal/models"
)

// HealthRepository defines the store operations the health check needs
type HealthRepository interface {
	Ping(ctx context.Context) error
	LatestHealthStatus(ctx context.Context, sessionID string) (*metrics.HealthStatus, error)
}

// HealthHandler reports database connectivity and session congestion
type HealthHandler struct {
	repo      HealthRepository
	sessionID string
}

// NewHealthHandler creates a new handler with the given repository
func NewHealthHandler(repo HealthRepository, sessionID string) *HealthHandler {
	return &HealthHandler{repo: repo, sessionID: sessionID}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		SessionID: h.sessionID,
		Timestamp: time.Now().UTC(),
	}

	if err := h.repo.Ping(ctx); err != nil {
		resp.Status = models.StatusError
		resp.Database = models.DatabaseDisconnected
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = models.DatabaseConnected

	congestion, err := h.repo.LatestHealthStatus(ctx, h.sessionID)
	if err != nil {
		resp.Status = models.StatusError
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Congestion = congestion
	resp.Status = models.CalculateHealthStatus(congestion)

	writeJSON(w, http.StatusOK, resp)
}
