package sim

import (
	"fmt"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
)

const (
	SlotActive      = "active"
	SlotInactive    = "inactive"
	SlotUnavailable = "unavailable"
)

// Train statuses, named after the GTFS-RT vehicle stop status.
const (
	TrainStoppedAt   = "STOPPED_AT"
	TrainInTransitTo = "IN_TRANSIT_TO"
)

// Snapshot is a consistent copy of the session state at one tick.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	Tick      uint64          `json:"tick"`
	TakenAt   time.Time       `json:"takenAt"`
	Stations  []StationView   `json:"stations"`
	Trains    []TrainView     `json:"trains"`
	Lines     []LineSlot      `json:"lines"`
	Resources metro.Resources `json:"resources"`
	Waiting   int             `json:"waiting"`
	Onboard   int             `json:"onboard"`
	Delivered int             `json:"delivered"`
}

type StationView struct {
	ID        metro.StationID `json:"id"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Kind      metro.Kind      `json:"kind"`
	Intensity float64         `json:"intensity"`
	Waiting   []metro.Kind    `json:"waiting"`
}

type TrainView struct {
	ID         int             `json:"id"`
	Line       metro.LineID    `json:"line"`
	Last       metro.StationID `json:"last"`
	Next       metro.StationID `json:"next"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Traveled   float64         `json:"traveled"`
	Stopped    bool            `json:"stopped"`
	Cars       int             `json:"cars"`
	Passengers []metro.Kind    `json:"passengers"`
}

// Status is the train's GTFS-RT style stop status.
func (t TrainView) Status() string {
	if t.Stopped {
		return TrainStoppedAt
	}
	return TrainInTransitTo
}

// LineSlot is one entry of the line picker.
type LineSlot struct {
	Line   metro.LineID      `json:"line"`
	Status string            `json:"status"`
	Color  string            `json:"color"`
	Path   []metro.StationID `json:"path,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	n := s.network
	snap := Snapshot{
		SessionID: s.id.String(),
		Tick:      s.tick,
		TakenAt:   time.Now().UTC(),
		Stations:  make([]StationView, 0, len(n.Stations)),
		Trains:    make([]TrainView, 0, len(n.Trains)),
		Lines:     s.lineSlots(),
		Resources: s.resources,
		Waiting:   n.WaitingPassengers(),
		Onboard:   n.OnboardPassengers(),
		Delivered: n.Delivered,
	}

	for _, st := range n.Stations {
		snap.Stations = append(snap.Stations, StationView{
			ID:        st.ID,
			X:         st.Position.X(),
			Y:         st.Position.Y(),
			Kind:      st.Kind,
			Intensity: st.Intensity,
			Waiting:   targets(st.Passengers),
		})
	}

	for i := range n.Trains {
		t := &n.Trains[i]
		pos := n.TrainPosition(t)
		snap.Trains = append(snap.Trains, TrainView{
			ID:         t.ID,
			Line:       t.Line,
			Last:       t.Last,
			Next:       t.Next,
			X:          pos.X(),
			Y:          pos.Y(),
			Traveled:   t.Traveled,
			Stopped:    t.Stopped,
			Cars:       t.Cars,
			Passengers: targets(t.Passengers),
		})
	}
	return snap
}

func targets(passengers []metro.Passenger) []metro.Kind {
	kinds := make([]metro.Kind, len(passengers))
	for i, p := range passengers {
		kinds[i] = p.Target
	}
	return kinds
}

func (s *Session) lineSlots() []LineSlot {
	slots := make([]LineSlot, 0, s.resources.MaxLines)
	for i := range s.resources.MaxLines {
		line := metro.LineID(i)
		slot := LineSlot{
			Line:   line,
			Status: SlotUnavailable,
			Color:  metro.HexColor(metro.LineColor(line)),
		}
		switch {
		case s.network.IsLineActive(line):
			slot.Status = SlotActive
			slot.Path = s.network.LinePath(line)
		case i < s.resources.AvailableLines:
			slot.Status = SlotInactive
		}
		slots = append(slots, slot)
	}
	return slots
}

// Sample converts the snapshot into a telemetry sample.
func (snap Snapshot) Sample() metrics.Sample {
	active := 0
	for _, l := range snap.Lines {
		if l.Status == SlotActive {
			active++
		}
	}

	sample := metrics.Sample{
		SessionID:   snap.SessionID,
		TakenAt:     snap.TakenAt,
		Tick:        snap.Tick,
		Stations:    len(snap.Stations),
		Waiting:     snap.Waiting,
		Onboard:     snap.Onboard,
		Delivered:   snap.Delivered,
		ActiveLines: active,
		Trains:      make([]metrics.TrainSample, 0, len(snap.Trains)),
	}
	for _, t := range snap.Trains {
		sample.Trains = append(sample.Trains, metrics.TrainSample{
			TrainKey:    fmt.Sprintf("%s:%d", snap.SessionID, t.ID),
			Line:        int(t.Line),
			LastStation: int(t.Last),
			NextStation: int(t.Next),
			X:           t.X,
			Y:           t.Y,
			Status:      t.Status(),
			Passengers:  len(t.Passengers),
		})
	}
	return sample
}
