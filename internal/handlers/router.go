package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouterOptions wires the handlers into one router
type RouterOptions struct {
	Simulation     *SimulationHandler
	Health         *HealthHandler
	Stream         http.Handler
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	if opts.Health != nil {
		r.Get("/health", opts.Health.GetHealth)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s := opts.Simulation
	r.Get("/api/network", s.GetNetwork)
	r.Get("/api/distances", s.GetDistance)
	r.Get("/api/segments", s.GetSegments)
	r.Post("/api/gestures/start", s.StartGesture)
	r.Post("/api/gestures/move", s.MoveGesture)
	r.Post("/api/gestures/end", s.EndGesture)
	r.Post("/api/lines/unlock", s.UnlockLine)
	r.Delete("/api/lines/{lineId}", s.DeleteLine)
	r.Get("/api/feed/vehicle_positions.pb", s.GetVehiclePositions)

	if opts.Stream != nil {
		r.Handle("/api/stream", opts.Stream)
	}
	return r
}
