package models

import (
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
)

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status     string                `json:"status"`   // "ok", "degraded", "error"
	Database   string                `json:"database"` // "connected", "disconnected"
	SessionID  string                `json:"sessionId"`
	Congestion *metrics.HealthStatus `json:"congestion,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	Error      string                `json:"error,omitempty"`
}

// Service status constants
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Database status constants
const (
	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
)

// CalculateHealthStatus returns the service status for the latest congestion
// assessment. No assessment yet counts as ok.
func CalculateHealthStatus(congestion *metrics.HealthStatus) string {
	if congestion != nil && congestion.Status == metrics.StatusCongested {
		return StatusDegraded
	}
	return StatusOK
}
