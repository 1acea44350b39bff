package metro

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/exp/slices"
)

var (
	ErrPathTooShort   = errors.New("line path needs at least two stations")
	ErrRepeatedStop   = errors.New("line path visits a station twice")
	ErrUnknownStation = errors.New("unknown station")
)

// Network owns stations, the per-line directed adjacency and the all-pairs
// distance matrix derived from it. It is not safe for concurrent use.
type Network struct {
	Stations []Station
	Trains   []Train

	// Delivered counts passengers that reached a station of their target kind.
	Delivered int

	connections [][][]Connection
	distances   [][]float64
	nextTrainID int
}

// NewNetwork builds a network without connections over the given stations.
// Station IDs are reassigned to their index.
func NewNetwork(stations []Station) *Network {
	n := &Network{}
	for _, s := range stations {
		n.appendStation(s)
	}
	n.calculateDistances()
	return n
}

// AddStation appends a station and returns its id.
func (n *Network) AddStation(s Station) StationID {
	id := n.appendStation(s)
	n.calculateDistances()
	return id
}

func (n *Network) appendStation(s Station) StationID {
	id := StationID(len(n.Stations))
	s.ID = id
	n.Stations = append(n.Stations, s)

	for i := range n.connections {
		n.connections[i] = append(n.connections[i], nil)
	}
	n.connections = append(n.connections, make([][]Connection, len(n.Stations)))
	return id
}

func (n *Network) mustExist(id StationID) {
	if id < 0 || int(id) >= len(n.Stations) {
		panic(fmt.Sprintf("metro: station %d out of range (have %d)", id, len(n.Stations)))
	}
}

// HasStation reports whether id names a station.
func (n *Network) HasStation(id StationID) bool {
	return id >= 0 && int(id) < len(n.Stations)
}

// StationPosition returns the world position of a station.
func (n *Network) StationPosition(id StationID) (orb.Point, bool) {
	if !n.HasStation(id) {
		return orb.Point{}, false
	}
	return n.Stations[id].Position, true
}

// AddConnection inserts the directed connection a→b for line. Inserting a
// connection that already exists is a no-op and skips the recomputation.
// Out-of-range station ids panic.
func (n *Network) AddConnection(a, b StationID, line LineID) {
	if n.insert(a, b, line) {
		n.calculateDistances()
	}
}

func (n *Network) insert(a, b StationID, line LineID) bool {
	n.mustExist(a)
	n.mustExist(b)

	cell := n.connections[a][b]
	if slices.IndexFunc(cell, func(c Connection) bool { return c.Line == line }) >= 0 {
		return false
	}
	n.connections[a][b] = append(cell, Connection{From: a, To: b, Line: line})
	return true
}

// removeLine drops every connection owned by line without recomputing.
func (n *Network) removeLine(line LineID) bool {
	changed := false
	for a := range n.connections {
		for b, cell := range n.connections[a] {
			kept := cell[:0]
			for _, c := range cell {
				if c.Line == line {
					changed = true
					continue
				}
				kept = append(kept, c)
			}
			if len(kept) == 0 {
				kept = nil
			}
			n.connections[a][b] = kept
		}
	}
	return changed
}

// ApplyPath replaces the connections of line with the ordered path. Each
// consecutive pair is connected in both directions so trains can run the
// line back and forth. Distances are recomputed once.
func (n *Network) ApplyPath(line LineID, path []StationID) error {
	if len(path) < 2 {
		return ErrPathTooShort
	}
	for i, id := range path {
		if !n.HasStation(id) {
			return fmt.Errorf("%w: %d", ErrUnknownStation, id)
		}
		if slices.Contains(path[:i], id) {
			return fmt.Errorf("%w: %d", ErrRepeatedStop, id)
		}
	}

	n.removeLine(line)
	for i := 0; i < len(path)-1; i++ {
		n.insert(path[i], path[i+1], line)
		n.insert(path[i+1], path[i], line)
	}
	n.calculateDistances()
	n.rehomeTrains(line, path)
	return nil
}

// RemoveLine deletes every connection of line together with the trains
// running on it. Onboard passengers are put back on the station the train
// was last at. It returns the number of trains taken off the line.
func (n *Network) RemoveLine(line LineID) int {
	if n.removeLine(line) {
		n.calculateDistances()
	}

	removed := 0
	kept := n.Trains[:0]
	for _, t := range n.Trains {
		if t.Line != line {
			kept = append(kept, t)
			continue
		}
		n.unloadTrain(&t)
		removed++
	}
	n.Trains = kept
	return removed
}

// ActiveLines returns the sorted ids of all lines with at least one connection.
func (n *Network) ActiveLines() []LineID {
	var lines []LineID
	for a := range n.connections {
		for _, cell := range n.connections[a] {
			for _, c := range cell {
				if !slices.Contains(lines, c.Line) {
					lines = append(lines, c.Line)
				}
			}
		}
	}
	slices.Sort(lines)
	return lines
}

// IsLineActive reports whether line owns any connection.
func (n *Network) IsLineActive(line LineID) bool {
	for a := range n.connections {
		for _, cell := range n.connections[a] {
			for _, c := range cell {
				if c.Line == line {
					return true
				}
			}
		}
	}
	return false
}

// Connections returns the connections stored for the ordered pair a→b.
func (n *Network) Connections(a, b StationID) []Connection {
	n.mustExist(a)
	n.mustExist(b)
	return slices.Clone(n.connections[a][b])
}

// LineNeighbors lists the stations reachable from station in one hop on line,
// in ascending id order.
func (n *Network) LineNeighbors(station StationID, line LineID) []StationID {
	n.mustExist(station)

	var out []StationID
	for to, cell := range n.connections[station] {
		if slices.IndexFunc(cell, func(c Connection) bool { return c.Line == line }) >= 0 {
			out = append(out, StationID(to))
		}
	}
	return out
}

// LinePath reconstructs the ordered station sequence of a line, starting
// from its lowest-numbered terminal. Returns nil for an inactive line.
func (n *Network) LinePath(line LineID) []StationID {
	start, fallback := StationID(-1), StationID(-1)
	for i := range n.Stations {
		degree := len(n.LineNeighbors(StationID(i), line))
		if degree == 1 {
			start = StationID(i)
			break
		}
		if degree > 1 && fallback < 0 {
			fallback = StationID(i)
		}
	}
	if start < 0 {
		start = fallback
	}
	if start < 0 {
		return nil
	}

	path := []StationID{start}
	for current := start; ; {
		next := StationID(-1)
		for _, candidate := range n.LineNeighbors(current, line) {
			if !slices.Contains(path, candidate) {
				next = candidate
				break
			}
		}
		if next < 0 {
			return path
		}
		path = append(path, next)
		current = next
	}
}

// Distance returns the cached shortest path length from a to b, or +Inf
// when b cannot be reached from a.
func (n *Network) Distance(a, b StationID) float64 {
	n.mustExist(a)
	n.mustExist(b)
	return n.distances[a][b]
}

// EdgeLength is the straight-line distance between two stations.
func (n *Network) EdgeLength(a, b StationID) float64 {
	return planar.Distance(n.Stations[a].Position, n.Stations[b].Position)
}

// calculateDistances rebuilds the distance matrix from scratch with
// Floyd–Warshall. Only directly connected ordered pairs are seeded.
func (n *Network) calculateDistances() {
	size := len(n.Stations)
	d := make([][]float64, size)
	for i := range d {
		d[i] = make([]float64, size)
		for j := range d[i] {
			switch {
			case i == j:
				d[i][j] = 0
			case len(n.connections[i][j]) > 0:
				d[i][j] = n.EdgeLength(StationID(i), StationID(j))
			default:
				d[i][j] = math.Inf(1)
			}
		}
	}

	for k := 0; k < size; k++ {
		for i := 0; i < size; i++ {
			if math.IsInf(d[i][k], 1) {
				continue
			}
			for j := 0; j < size; j++ {
				if via := d[i][k] + d[k][j]; via < d[i][j] {
					d[i][j] = via
				}
			}
		}
	}

	n.distances = d
}
