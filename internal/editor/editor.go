// Package editor turns pointer drag gestures into line paths.
//
// A gesture starts on a line handle, moves over the map with an optional
// station hit-test result for every pointer update, and ends when the pointer
// is released. Only drawing a brand new line is implemented; extending and
// editing existing lines have their own states and handles but report
// ErrUnsupported.
package editor

import (
	"errors"
	"fmt"

	"github.com/mini-rodalies-3d/metrosim/internal/events"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var (
	ErrNoLinesAvailable = errors.New("no line slots available")
	ErrUnsupported      = errors.New("line editing mode not supported yet")
	ErrNoDrag           = errors.New("no drag gesture in progress")
	ErrUnknownStation   = errors.New("unknown station")
)

// Topology is the part of the network the editor reads.
type Topology interface {
	IsLineActive(line metro.LineID) bool
	StationPosition(id metro.StationID) (orb.Point, bool)
}

// Handle is what a drag gesture starts on.
type Handle interface {
	isHandle()
}

// NewLineHandle sits on every station and starts a new line there.
type NewLineHandle struct {
	Station metro.StationID
}

// ExtendHandle sits at a terminal of an existing line.
type ExtendHandle struct {
	Station metro.StationID
	Line    metro.LineID
}

// EditHandle sits in the middle of an edge of an existing line.
type EditHandle struct {
	Stations [2]metro.StationID
	Line     metro.LineID
}

func (NewLineHandle) isHandle() {}
func (ExtendHandle) isHandle()  {}
func (EditHandle) isHandle()    {}

// PathNode is one segment of a line being drawn. End is nil while the
// segment follows the pointer.
type PathNode struct {
	Start   metro.StationID
	End     *metro.StationID
	Segment SegmentID
}

// State is the gesture state.
type State interface {
	isState()
}

type Idle struct{}

// DrawingNew is a new line being dragged out of a station.
type DrawingNew struct {
	Line metro.LineID
	Path []PathNode
}

// Extending is reserved for dragging a terminal of an existing line.
type Extending struct {
	Line metro.LineID
	Path []PathNode
}

// Editing is reserved for splitting an edge of an existing line.
type Editing struct {
	Line      metro.LineID
	Path      []PathNode
	Endpoints [2]metro.StationID
}

func (Idle) isState()        {}
func (*DrawingNew) isState() {}
func (*Extending) isState()  {}
func (*Editing) isState()    {}

// Editor is the line drawing state machine. It is not safe for concurrent use.
type Editor struct {
	topo     Topology
	renderer Renderer
	paths    events.Sender[events.PathChanged]
	hovers   events.Sender[events.StationHovered]

	state State
	// overStation is the edge trigger: true while the pointer stays on a
	// station that was already handled.
	overStation bool
}

func New(topo Topology, renderer Renderer, paths events.Sender[events.PathChanged], hovers events.Sender[events.StationHovered]) *Editor {
	return &Editor{
		topo:     topo,
		renderer: renderer,
		paths:    paths,
		hovers:   hovers,
		state:    Idle{},
	}
}

// State returns the current gesture state. Paths are copies.
func (e *Editor) State() State {
	switch s := e.state.(type) {
	case *DrawingNew:
		return &DrawingNew{Line: s.Line, Path: slices.Clone(s.Path)}
	default:
		return s
	}
}

// Start begins a gesture on h with the pointer at pointer. available is the
// number of unlocked line slots. A gesture already in progress is discarded
// once the new one is known to start.
func (e *Editor) Start(h Handle, available int, pointer orb.Point) (metro.LineID, error) {
	switch h := h.(type) {
	case NewLineHandle:
		return e.startNewLine(h.Station, available, pointer)
	case ExtendHandle, EditHandle:
		return 0, fmt.Errorf("start %T: %w", h, ErrUnsupported)
	default:
		panic(fmt.Sprintf("editor: unknown handle %T", h))
	}
}

func (e *Editor) startNewLine(station metro.StationID, available int, pointer orb.Point) (metro.LineID, error) {
	origin, ok := e.topo.StationPosition(station)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStation, station)
	}

	line := metro.LineID(-1)
	for id := metro.LineID(0); int(id) < available; id++ {
		if !e.topo.IsLineActive(id) {
			line = id
			break
		}
	}
	if line < 0 {
		zap.S().Infof("editor: no lines available (%d slots in use)", available)
		return 0, ErrNoLinesAvailable
	}

	if _, idle := e.state.(Idle); !idle {
		zap.S().Warnf("editor: new gesture while another is in progress, discarding it")
		e.Abort()
	}

	segment := e.renderer.SpawnSegment(Segment{
		Line:  line,
		Start: origin,
		End:   pointer,
		Color: metro.LineColor(line),
	})
	e.state = &DrawingNew{
		Line: line,
		Path: []PathNode{{Start: station, Segment: segment}},
	}
	// the pointer starts on the origin station
	e.overStation = true

	zap.S().Debugf("editor: drawing line %d from station %d", line, station)
	return line, nil
}

// Move updates the gesture with the pointer position and the station under
// it, if any. Station entry is edge-triggered: staying on a station or coming
// back to it without leaving first does nothing.
func (e *Editor) Move(pointer orb.Point, hit *metro.StationID) error {
	var drawing *DrawingNew
	switch s := e.state.(type) {
	case Idle:
		return ErrNoDrag
	case *DrawingNew:
		drawing = s
	default:
		return fmt.Errorf("move in %T: %w", s, ErrUnsupported)
	}

	var hitPosition orb.Point
	if hit != nil {
		position, ok := e.topo.StationPosition(*hit)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownStation, *hit)
		}
		hitPosition = position
	}

	if len(drawing.Path) == 0 {
		panic("editor: drawing a line with an empty path")
	}
	tip := &drawing.Path[len(drawing.Path)-1]
	e.renderer.MoveSegmentEnd(tip.Segment, pointer)

	if hit == nil {
		e.overStation = false
		return nil
	}
	if e.overStation {
		return nil
	}
	e.overStation = true

	station := *hit
	switch {
	case station == tip.Start:
		e.detach(drawing, pointer)
	case len(drawing.Path) > 2 && station == drawing.Path[0].Start:
		// TODO: close the loop once looped lines have defined train behaviour.
		zap.S().Debugf("editor: closing line %d into a loop is not supported", drawing.Line)
	case slices.IndexFunc(drawing.Path, func(n PathNode) bool { return n.Start == station }) >= 0:
		// the line would cross itself
	default:
		e.attach(drawing, station, hitPosition, pointer)
	}
	return nil
}

// detach drops the segment ending at the tip and reopens the previous one.
// The first segment cannot be detached.
func (e *Editor) detach(drawing *DrawingNew, pointer orb.Point) {
	if len(drawing.Path) <= 1 {
		return
	}

	last := drawing.Path[len(drawing.Path)-1]
	e.renderer.DespawnSegment(last.Segment)
	drawing.Path = drawing.Path[:len(drawing.Path)-1]

	tip := &drawing.Path[len(drawing.Path)-1]
	tip.End = nil
	e.renderer.MoveSegmentEnd(tip.Segment, pointer)
}

// attach terminates the tip at station and opens a new segment from it.
func (e *Editor) attach(drawing *DrawingNew, station metro.StationID, position, pointer orb.Point) {
	tip := &drawing.Path[len(drawing.Path)-1]
	end := station
	tip.End = &end
	e.renderer.MoveSegmentEnd(tip.Segment, position)

	segment := e.renderer.SpawnSegment(Segment{
		Line:  drawing.Line,
		Start: position,
		End:   pointer,
		Color: metro.LineColor(drawing.Line),
	})
	drawing.Path = append(drawing.Path, PathNode{Start: station, Segment: segment})

	e.hovers.Send(events.StationHovered{Line: drawing.Line, Station: station})
}

// End finishes the gesture. The segment still following the pointer is
// dropped; whatever remains is committed as the line's path and announced
// through a PathChanged event. It reports whether a path was committed.
func (e *Editor) End() (bool, error) {
	var drawing *DrawingNew
	switch s := e.state.(type) {
	case Idle:
		return false, ErrNoDrag
	case *DrawingNew:
		drawing = s
	default:
		return false, fmt.Errorf("end in %T: %w", s, ErrUnsupported)
	}
	e.state = Idle{}

	path := drawing.Path
	if n := len(path); n > 0 && path[n-1].End == nil {
		e.renderer.DespawnSegment(path[n-1].Segment)
		path = path[:n-1]
	}
	if len(path) == 0 {
		return false, nil
	}

	stations := make([]metro.StationID, 0, len(path)+1)
	stations = append(stations, path[0].Start)
	for _, node := range path {
		if node.End == nil {
			panic(fmt.Sprintf("editor: committed segment from station %d has no end", node.Start))
		}
		stations = append(stations, *node.End)
	}

	zap.S().Infof("editor: line %d path changed: %v", drawing.Line, stations)
	e.paths.Send(events.PathChanged{Line: drawing.Line, Path: stations})
	return true, nil
}

// Abort discards the gesture in progress and every segment it spawned.
func (e *Editor) Abort() {
	var path []PathNode
	switch s := e.state.(type) {
	case *DrawingNew:
		path = s.Path
	case *Extending:
		path = s.Path
	case *Editing:
		path = s.Path
	}
	for _, node := range path {
		e.renderer.DespawnSegment(node.Segment)
	}
	e.state = Idle{}
}
