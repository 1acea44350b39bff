package metro

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slices"
)

var ErrLineInactive = errors.New("line has no connections")

// SpawnRandomStation places a station uniformly inside WorldExtent. Kinds are
// drawn 20% square, 30% triangle, 50% circle; intensity is in [0.1, 0.2].
func (n *Network) SpawnRandomStation(rng *rand.Rand) StationID {
	position := orb.Point{
		WorldExtent.Min.X() + rng.Float64()*(WorldExtent.Max.X()-WorldExtent.Min.X()),
		WorldExtent.Min.Y() + rng.Float64()*(WorldExtent.Max.Y()-WorldExtent.Min.Y()),
	}

	var kind Kind
	switch draw := rng.Float64(); {
	case draw < 0.2:
		kind = Square
	case draw < 0.5:
		kind = Triangle
	default:
		kind = Circle
	}

	return n.AddStation(Station{
		Kind:      kind,
		Position:  position,
		Intensity: 0.1 + rng.Float64()*0.1,
	})
}

// SpawnRandomPassengers gives each station one new passenger with probability
// equal to its intensity. Returns how many passengers were created.
func (n *Network) SpawnRandomPassengers(rng *rand.Rand) int {
	kinds := AllKinds()
	spawned := 0
	for i := range n.Stations {
		s := &n.Stations[i]
		if rng.Float64() >= s.Intensity {
			continue
		}
		s.Passengers = append(s.Passengers, Passenger{Target: kinds[rng.Intn(len(kinds))]})
		spawned++
	}
	return spawned
}

// MoveTrains advances every running train by delta along its current edge.
// A train reaching the next station is clamped there and stops.
func (n *Network) MoveTrains(delta float64) {
	for i := range n.Trains {
		t := &n.Trains[i]
		if t.Stopped {
			continue
		}

		length := n.EdgeLength(t.Last, t.Next)
		t.Traveled += delta
		if t.Traveled >= length {
			t.Traveled = length
			t.Stopped = true
		}
	}
}

// BoardingStats counts what one BoardPassengers call did.
type BoardingStats struct {
	Boarded   int `json:"boarded"`
	Delivered int `json:"delivered"`
	Departed  int `json:"departed"`
}

// BoardPassengers performs at most one action per stopped train: deliver an
// onboard passenger whose target matches the station, else board the first
// waiting passenger that gets closer to its target by riding to the next
// station, else send the train off toward that station. It is meant to be
// called repeatedly on a timer.
func (n *Network) BoardPassengers() BoardingStats {
	var stats BoardingStats
	for i := range n.Trains {
		t := &n.Trains[i]
		if !t.Stopped {
			continue
		}

		current := t.Next
		forward, ok := n.forwardNeighbor(t)
		if !ok {
			// the line no longer leaves this station; wait for a re-edit
			continue
		}

		station := &n.Stations[current]
		if idx := slices.IndexFunc(t.Passengers, func(p Passenger) bool { return p.Target == station.Kind }); idx >= 0 {
			t.Passengers = slices.Delete(t.Passengers, idx, idx+1)
			n.Delivered++
			stats.Delivered++
			continue
		}

		if len(t.Passengers) < t.Capacity() {
			idx := slices.IndexFunc(station.Passengers, func(p Passenger) bool {
				return n.shortensTrip(current, forward, p.Target)
			})
			if idx >= 0 {
				t.Passengers = append(t.Passengers, station.Passengers[idx])
				station.Passengers = slices.Delete(station.Passengers, idx, idx+1)
				stats.Boarded++
				continue
			}
		}

		t.Stopped = false
		t.Last = current
		t.Next = forward
		t.Traveled = 0
		stats.Departed++
	}
	return stats
}

// forwardNeighbor picks the station a train stopped at t.Next continues to.
// A line never branches, so more than two neighbours is a corrupt topology.
func (n *Network) forwardNeighbor(t *Train) (StationID, bool) {
	candidates := n.LineNeighbors(t.Next, t.Line)
	switch len(candidates) {
	case 0:
		return 0, false
	case 1:
		return candidates[0], true
	case 2:
		if candidates[0] == t.Last {
			return candidates[1], true
		}
		return candidates[0], true
	default:
		panic(fmt.Sprintf("metro: line %d branches at station %d into %d directions", t.Line, t.Next, len(candidates)))
	}
}

// shortensTrip reports whether some reachable station of kind target is
// strictly closer from forward than from current.
func (n *Network) shortensTrip(current, forward StationID, target Kind) bool {
	for i, s := range n.Stations {
		if s.Kind != target {
			continue
		}
		here := n.distances[current][i]
		if math.IsInf(here, 1) {
			continue
		}
		if n.distances[forward][i] < here {
			return true
		}
	}
	return false
}

// DeployTrain puts a new stopped one-car train on the first station of line.
func (n *Network) DeployTrain(line LineID) (*Train, error) {
	path := n.LinePath(line)
	if len(path) == 0 {
		return nil, fmt.Errorf("deploy on line %d: %w", line, ErrLineInactive)
	}

	n.Trains = append(n.Trains, Train{
		ID:      n.nextTrainID,
		Line:    line,
		Last:    path[0],
		Next:    path[0],
		Cars:    1,
		Stopped: true,
	})
	n.nextTrainID++
	return &n.Trains[len(n.Trains)-1], nil
}

// TrainsOn counts the trains running on line.
func (n *Network) TrainsOn(line LineID) int {
	count := 0
	for _, t := range n.Trains {
		if t.Line == line {
			count++
		}
	}
	return count
}

// TrainPosition interpolates the world position of a train along its edge.
func (n *Network) TrainPosition(t *Train) orb.Point {
	from := n.Stations[t.Last].Position
	to := n.Stations[t.Next].Position
	length := n.EdgeLength(t.Last, t.Next)
	if length == 0 {
		return to
	}
	f := t.Traveled / length
	return orb.Point{
		from.X() + (to.X()-from.X())*f,
		from.Y() + (to.Y()-from.Y())*f,
	}
}

// WaitingPassengers is the number of passengers waiting on platforms.
func (n *Network) WaitingPassengers() int {
	total := 0
	for _, s := range n.Stations {
		total += len(s.Passengers)
	}
	return total
}

// OnboardPassengers is the number of passengers riding trains.
func (n *Network) OnboardPassengers() int {
	total := 0
	for _, t := range n.Trains {
		total += len(t.Passengers)
	}
	return total
}

// unloadTrain returns onboard passengers to the station the train is at, or
// to the one it left when it is between stations.
func (n *Network) unloadTrain(t *Train) {
	at := t.Last
	if t.Stopped {
		at = t.Next
	}
	n.Stations[at].Passengers = append(n.Stations[at].Passengers, t.Passengers...)
	t.Passengers = nil
}

// rehomeTrains moves trains whose edge vanished in a re-edit back to the
// start of the new path.
func (n *Network) rehomeTrains(line LineID, path []StationID) {
	for i := range n.Trains {
		t := &n.Trains[i]
		if t.Line != line {
			continue
		}
		if t.Last == t.Next && slices.Contains(path, t.Next) {
			continue
		}
		if t.Last != t.Next && slices.IndexFunc(n.connections[t.Last][t.Next], func(c Connection) bool { return c.Line == line }) >= 0 {
			continue
		}

		n.unloadTrain(t)
		t.Last, t.Next = path[0], path[0]
		t.Traveled = 0
		t.Stopped = true
	}
}
