// Package sim runs one game session: it owns the network, the line editor and
// the player's resources and advances them tick by tick.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mini-rodalies-3d/metrosim/internal/editor"
	"github.com/mini-rodalies-3d/metrosim/internal/events"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

var ErrMaxLines = errors.New("all line slots already unlocked")

// Options tune a session. Zero intervals disable the matching timer.
type Options struct {
	TrainSpeed             float64 // world units per second
	PassengerSpawnInterval time.Duration
	StationSpawnInterval   time.Duration
	BoardingInterval       time.Duration

	// Seed for the session's random source; 0 picks one from the clock.
	Seed int64

	// Stations the world starts with. Defaults to metro.DefaultStations.
	Stations []metro.Station
}

func DefaultOptions() Options {
	return Options{
		TrainSpeed:             20,
		PassengerSpawnInterval: 2 * time.Second,
		StationSpawnInterval:   30 * time.Second,
		BoardingInterval:       300 * time.Millisecond,
	}
}

// Session serialises every access to the simulation behind one mutex, so
// distances are never observed mid-recomputation.
type Session struct {
	mu sync.Mutex

	id        uuid.UUID
	startedAt time.Time
	opts      Options
	rng       *rand.Rand
	tick      uint64

	network   *metro.Network
	resources metro.Resources
	editor    *editor.Editor
	segments  *editor.SegmentStore

	paths       events.Queue[events.PathChanged]
	lineChanges *events.MultiplexerSender[events.ActiveLinesChanged]
	lineMux     *events.Multiplexer[events.ActiveLinesChanged]
	hovers      *events.MultiplexerSender[events.StationHovered]
	hoverMux    *events.Multiplexer[events.StationHovered]
	snapshots   *events.MultiplexerSender[Snapshot]
	snapshotMux *events.Multiplexer[Snapshot]

	passengerTimer time.Duration
	stationTimer   time.Duration
	boardingTimer  time.Duration
}

func NewSession(opts Options) *Session {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	stations := opts.Stations
	if stations == nil {
		stations = metro.DefaultStations()
	}

	s := &Session{
		id:        uuid.New(),
		startedAt: time.Now(),
		opts:      opts,
		rng:       rand.New(rand.NewSource(seed)),
		network:   metro.NewNetwork(stations),
		resources: metro.DefaultResources(),
		segments:  editor.NewSegmentStore(),
	}
	s.lineChanges, s.lineMux = events.NewMultiplexerSender[events.ActiveLinesChanged]("active lines")
	s.hovers, s.hoverMux = events.NewMultiplexerSender[events.StationHovered]("station hovered")
	s.snapshots, s.snapshotMux = events.NewMultiplexerSender[Snapshot]("snapshot")
	s.editor = editor.New(s.network, s.segments, &s.paths, s.hovers)

	zap.S().Infof("Session %s: started with %d stations (seed %d)", s.id, len(stations), seed)
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// LineEvents delivers ActiveLinesChanged after every topology edit.
func (s *Session) LineEvents() *events.Multiplexer[events.ActiveLinesChanged] {
	return s.lineMux
}

// HoverEvents delivers StationHovered while a line is drawn.
func (s *Session) HoverEvents() *events.Multiplexer[events.StationHovered] {
	return s.hoverMux
}

// Snapshots delivers a Snapshot after every tick driven by Run.
func (s *Session) Snapshots() *events.Multiplexer[Snapshot] {
	return s.snapshotMux
}

// StartGesture starts drawing a new line from station.
func (s *Session) StartGesture(station metro.StationID, pointer orb.Point) (metro.LineID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Start(editor.NewLineHandle{Station: station}, s.resources.AvailableLines, pointer)
}

// MoveGesture feeds a pointer update; hit is the station under the pointer.
func (s *Session) MoveGesture(pointer orb.Point, hit *metro.StationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Move(pointer, hit)
}

// EndGesture finishes the gesture and applies the committed path right away.
func (s *Session) EndGesture() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	committed, err := s.editor.End()
	if err != nil {
		return false, err
	}
	s.applyPathChanges()
	return committed, nil
}

// Tick advances the simulation by dt. Pending path changes are always
// applied before anything moves.
func (s *Session) Tick(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyPathChanges()

	for range elapsed(&s.passengerTimer, s.opts.PassengerSpawnInterval, dt) {
		s.network.SpawnRandomPassengers(s.rng)
	}
	for range elapsed(&s.stationTimer, s.opts.StationSpawnInterval, dt) {
		id := s.network.SpawnRandomStation(s.rng)
		st := s.network.Stations[id]
		zap.S().Infof("Session %s: new %s station %d at %v", s.id, st.Kind, id, st.Position)
	}

	s.network.MoveTrains(s.opts.TrainSpeed * dt.Seconds())

	for range elapsed(&s.boardingTimer, s.opts.BoardingInterval, dt) {
		stats := s.network.BoardPassengers()
		if stats.Delivered > 0 {
			zap.S().Debugf("Session %s: delivered %d (total %d)", s.id, stats.Delivered, s.network.Delivered)
		}
	}

	s.tick++
}

// elapsed adds dt to timer and returns how many full intervals passed.
func elapsed(timer *time.Duration, interval, dt time.Duration) int {
	if interval <= 0 {
		return 0
	}
	*timer += dt
	fired := *timer / interval
	*timer -= fired * interval
	return int(fired)
}

// applyPathChanges drains the editor's committed paths into the network.
func (s *Session) applyPathChanges() {
	changes := s.paths.Drain()
	if len(changes) == 0 {
		return
	}

	for _, change := range changes {
		if err := s.network.ApplyPath(change.Line, change.Path); err != nil {
			zap.S().Errorf("Session %s: apply line %d path %v: %v", s.id, change.Line, change.Path, err)
			s.segments.RemoveLine(change.Line)
		}
	}
	s.linesChanged()
}

func (s *Session) linesChanged() {
	lines := s.network.ActiveLines()
	s.lineChanges.Send(events.ActiveLinesChanged{Lines: lines})
	s.deployTrains(lines)
}

// deployTrains gives every active line without a train one, while the
// train budget lasts.
func (s *Session) deployTrains(lines []metro.LineID) {
	for _, line := range lines {
		if len(s.network.Trains) >= s.resources.TotalTrains {
			zap.S().Infof("Session %s: no trains left for line %d", s.id, line)
			return
		}
		if s.network.TrainsOn(line) > 0 {
			continue
		}
		train, err := s.network.DeployTrain(line)
		if err != nil {
			zap.S().Warnf("Session %s: %v", s.id, err)
			continue
		}
		zap.S().Infof("Session %s: train %d deployed on line %d", s.id, train.ID, line)
	}
}

// UnlockLine makes one more line slot available and returns the new count.
func (s *Session) UnlockLine() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resources.AvailableLines >= s.resources.MaxLines {
		return s.resources.AvailableLines, ErrMaxLines
	}
	s.resources.AvailableLines++
	s.lineChanges.Send(events.ActiveLinesChanged{Lines: s.network.ActiveLines()})
	return s.resources.AvailableLines, nil
}

// RemoveLine deletes a line, its drawing and its trains.
func (s *Session) RemoveLine(line metro.LineID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.network.IsLineActive(line) {
		return fmt.Errorf("remove line %d: %w", line, metro.ErrLineInactive)
	}
	trains := s.network.RemoveLine(line)
	segments := s.segments.RemoveLine(line)
	zap.S().Infof("Session %s: line %d removed (%d trains, %d segments)", s.id, line, trains, segments)

	s.linesChanged()
	return nil
}

// Distance is the shortest path length between two stations.
func (s *Session) Distance(a, b metro.StationID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []metro.StationID{a, b} {
		if !s.network.HasStation(id) {
			return 0, fmt.Errorf("%w: %d", metro.ErrUnknownStation, id)
		}
	}
	return s.network.Distance(a, b), nil
}

// Segments lists every visible line segment, committed or being drawn.
func (s *Session) Segments() []editor.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.List()
}

// LineSlots describes every line slot up to MaxLines.
func (s *Session) LineSlots() []LineSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineSlots()
}

// Run ticks the session every interval until ctx is done, publishing a
// snapshot after each tick.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			zap.S().Infof("Session %s: stopped after %d ticks", s.id, ticks)
			return
		case now := <-ticker.C:
			s.Tick(now.Sub(last))
			last = now
			ticks++
			s.snapshots.Send(s.Snapshot())
		}
	}
}
