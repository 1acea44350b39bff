package handlers

import (
	"net/http"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/mini-rodalies-3d/metrosim/internal/feed"
)

// GetVehiclePositions handles GET /api/feed/vehicle_positions.pb
// Returns the GTFS-RT VehiclePositions feed; ?format=json returns the same
// message as protobuf JSON for debugging
func (h *SimulationHandler) GetVehiclePositions(w http.ResponseWriter, r *http.Request) {
	msg := feed.BuildVehiclePositions(h.svc.Snapshot(), time.Now())

	if r.URL.Query().Get("format") == "json" {
		data, err := protojson.Marshal(msg)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode feed", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	data, err := feed.Marshal(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode feed", err)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
