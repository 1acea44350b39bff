package models

import (
	"github.com/mini-rodalies-3d/metrosim/internal/editor"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
)

// GestureStartRequest is the body of POST /api/gestures/start
type GestureStartRequest struct {
	Station metro.StationID `json:"station"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
}

// GestureStartResponse carries the line slot the gesture draws
type GestureStartResponse struct {
	Line  metro.LineID `json:"line"`
	Color string       `json:"color"`
}

// GestureMoveRequest is the body of POST /api/gestures/move. Station is the
// station under the pointer, if any.
type GestureMoveRequest struct {
	X       float64          `json:"x"`
	Y       float64          `json:"y"`
	Station *metro.StationID `json:"station"`
}

// GestureEndResponse reports whether a path was committed
type GestureEndResponse struct {
	Committed bool `json:"committed"`
}

// DistanceResponse is the JSON response for GET /api/distances.
// Distance is null when the stations are not connected.
type DistanceResponse struct {
	From      metro.StationID `json:"from"`
	To        metro.StationID `json:"to"`
	Distance  *float64        `json:"distance"`
	Reachable bool            `json:"reachable"`
}

// SegmentView is a line segment as drawn by clients
type SegmentView struct {
	ID    editor.SegmentID `json:"id"`
	Line  metro.LineID     `json:"line"`
	Start [2]float64       `json:"start"`
	End   [2]float64       `json:"end"`
	Color string           `json:"color"`
}

// SegmentsResponse is the JSON response for GET /api/segments
type SegmentsResponse struct {
	Segments []SegmentView `json:"segments"`
	Count    int           `json:"count"`
}

// NewSegmentView converts a stored segment for the wire
func NewSegmentView(s editor.Segment) SegmentView {
	return SegmentView{
		ID:    s.ID,
		Line:  s.Line,
		Start: [2]float64{s.Start.X(), s.Start.Y()},
		End:   [2]float64{s.End.X(), s.End.Y()},
		Color: metro.HexColor(s.Color),
	}
}

// UnlockLineResponse is the JSON response for POST /api/lines/unlock
type UnlockLineResponse struct {
	AvailableLines int `json:"availableLines"`
}
