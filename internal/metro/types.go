package metro

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// StationID indexes Network.Stations. IDs are stable for the whole session.
type StationID int

// LineID is a line slot number in [0, MaxLines).
type LineID int

// Kind is the shape passengers are looking for.
type Kind int

const (
	Square Kind = iota
	Triangle
	Circle
)

// AllKinds returns every station kind in declaration order
func AllKinds() []Kind {
	return []Kind{Square, Triangle, Circle}
}

func (k Kind) String() string {
	switch k {
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Circle:
		return "circle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	case "circle":
		return Circle, nil
	}
	return 0, fmt.Errorf("unknown station kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Passenger waits at a station (or rides a train) until it reaches a
// station of its Target kind.
type Passenger struct {
	Target Kind `json:"target"`
}

type Station struct {
	ID       StationID `json:"id"`
	Position orb.Point `json:"position"`
	Kind     Kind      `json:"kind"`

	// Intensity is the probability of a passenger spawning here per spawn
	// round. From 0.0 to 1.0.
	Intensity float64 `json:"intensity"`

	Passengers []Passenger `json:"passengers"`
}

// NewStation returns a station with the default intensity of the starting map.
func NewStation(kind Kind, position orb.Point) Station {
	return Station{
		Kind:      kind,
		Position:  position,
		Intensity: 0.5,
	}
}

// Train runs back and forth along a single line.
type Train struct {
	ID   int    `json:"id"`
	Line LineID `json:"line"`

	Last StationID `json:"last"`
	Next StationID `json:"next"`

	// Traveled is the distance covered on the Last→Next edge.
	Traveled float64 `json:"traveled"`

	// Cars is the locomotive/car count; capacity scales with it.
	Cars    int  `json:"cars"`
	Stopped bool `json:"stopped"`

	Passengers []Passenger `json:"passengers"`
}

// Capacity is the number of passengers the train can carry.
func (t *Train) Capacity() int {
	return t.Cars * CarCapacity
}

// Connection is a directed edge between two stations owned by one line.
type Connection struct {
	From StationID `json:"from"`
	To   StationID `json:"to"`
	Line LineID    `json:"line"`
}
