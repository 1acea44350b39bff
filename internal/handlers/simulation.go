package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/mini-rodalies-3d/metrosim/internal/editor"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/mini-rodalies-3d/metrosim/internal/models"
	"github.com/mini-rodalies-3d/metrosim/internal/sim"
)

// SimulationService is the live session behind the HTTP surface
type SimulationService interface {
	Snapshot() sim.Snapshot
	Distance(a, b metro.StationID) (float64, error)
	Segments() []editor.Segment
	StartGesture(station metro.StationID, pointer orb.Point) (metro.LineID, error)
	MoveGesture(pointer orb.Point, hit *metro.StationID) error
	EndGesture() (bool, error)
	UnlockLine() (int, error)
	RemoveLine(line metro.LineID) error
}

// SimulationHandler handles HTTP requests for the running session
type SimulationHandler struct {
	svc SimulationService
}

// NewSimulationHandler creates a new handler for the given session
func NewSimulationHandler(svc SimulationService) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = map[string]interface{}{
			"internal": err.Error(),
		}
	}
	writeJSON(w, status, resp)
}

// GetNetwork handles GET /api/network
// Returns stations, trains, line slots and the score
func (h *SimulationHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// GetDistance handles GET /api/distances?from=&to=
func (h *SimulationHandler) GetDistance(w http.ResponseWriter, r *http.Request) {
	from, errFrom := strconv.Atoi(r.URL.Query().Get("from"))
	to, errTo := strconv.Atoi(r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil {
		writeError(w, http.StatusBadRequest, "from and to must be station ids", nil)
		return
	}

	d, err := h.svc.Distance(metro.StationID(from), metro.StationID(to))
	if errors.Is(err, metro.ErrUnknownStation) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Station not found",
			Details: map[string]interface{}{
				"from": from,
				"to":   to,
			},
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute distance", err)
		return
	}

	resp := models.DistanceResponse{
		From: metro.StationID(from),
		To:   metro.StationID(to),
	}
	if !math.IsInf(d, 1) {
		resp.Distance = &d
		resp.Reachable = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSegments handles GET /api/segments
// Returns every drawn segment, committed or following the pointer
func (h *SimulationHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	segments := h.svc.Segments()
	views := make([]models.SegmentView, 0, len(segments))
	for _, s := range segments {
		views = append(views, models.NewSegmentView(s))
	}
	writeJSON(w, http.StatusOK, models.SegmentsResponse{
		Segments: views,
		Count:    len(views),
	})
}

// StartGesture handles POST /api/gestures/start
func (h *SimulationHandler) StartGesture(w http.ResponseWriter, r *http.Request) {
	var req models.GestureStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	line, err := h.svc.StartGesture(req.Station, orb.Point{req.X, req.Y})
	if err != nil {
		writeGestureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.GestureStartResponse{
		Line:  line,
		Color: metro.HexColor(metro.LineColor(line)),
	})
}

// MoveGesture handles POST /api/gestures/move
func (h *SimulationHandler) MoveGesture(w http.ResponseWriter, r *http.Request) {
	var req models.GestureMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.svc.MoveGesture(orb.Point{req.X, req.Y}, req.Station); err != nil {
		writeGestureError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndGesture handles POST /api/gestures/end
func (h *SimulationHandler) EndGesture(w http.ResponseWriter, r *http.Request) {
	committed, err := h.svc.EndGesture()
	if err != nil {
		writeGestureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.GestureEndResponse{Committed: committed})
}

func writeGestureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrUnknownStation):
		writeError(w, http.StatusNotFound, "Station not found", err)
	case errors.Is(err, editor.ErrNoLinesAvailable):
		writeError(w, http.StatusConflict, "No line slots available", nil)
	case errors.Is(err, editor.ErrNoDrag):
		writeError(w, http.StatusConflict, "No gesture in progress", nil)
	case errors.Is(err, editor.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, "Gesture not supported", err)
	default:
		writeError(w, http.StatusInternalServerError, "Gesture failed", err)
	}
}

// UnlockLine handles POST /api/lines/unlock
func (h *SimulationHandler) UnlockLine(w http.ResponseWriter, r *http.Request) {
	available, err := h.svc.UnlockLine()
	if errors.Is(err, sim.ErrMaxLines) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "All line slots already unlocked",
			Details: map[string]interface{}{
				"availableLines": available,
			},
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unlock line", err)
		return
	}
	writeJSON(w, http.StatusOK, models.UnlockLineResponse{AvailableLines: available})
}

// DeleteLine handles DELETE /api/lines/{lineId}
func (h *SimulationHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.Atoi(chi.URLParam(r, "lineId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "lineId must be a number", nil)
		return
	}

	err = h.svc.RemoveLine(metro.LineID(lineID))
	if errors.Is(err, metro.ErrLineInactive) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Line not found",
			Details: map[string]interface{}{
				"lineId": lineID,
			},
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to remove line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
