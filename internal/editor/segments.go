package editor

import (
	"image/color"

	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/paulmach/orb"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SegmentID is an opaque handle to a visual line segment. A handle may
// outlive its segment; operations on a missing handle are ignored.
type SegmentID uint64

// Segment is the drawable straight piece of a line.
type Segment struct {
	ID    SegmentID    `json:"id"`
	Line  metro.LineID `json:"line"`
	Start orb.Point    `json:"start"`
	End   orb.Point    `json:"end"`
	Color color.RGBA   `json:"color"`
}

// Renderer draws line segments on behalf of the editor.
type Renderer interface {
	SpawnSegment(s Segment) SegmentID
	MoveSegmentEnd(id SegmentID, end orb.Point)
	DespawnSegment(id SegmentID)
}

// SegmentStore is an in-memory Renderer. Clients poll it to draw lines.
// It is not safe for concurrent use.
type SegmentStore struct {
	next     SegmentID
	segments map[SegmentID]Segment
}

func NewSegmentStore() *SegmentStore {
	return &SegmentStore{
		next:     1,
		segments: map[SegmentID]Segment{},
	}
}

func (s *SegmentStore) SpawnSegment(seg Segment) SegmentID {
	seg.ID = s.next
	s.next++
	s.segments[seg.ID] = seg
	return seg.ID
}

func (s *SegmentStore) MoveSegmentEnd(id SegmentID, end orb.Point) {
	seg, ok := s.segments[id]
	if !ok {
		return
	}
	seg.End = end
	s.segments[id] = seg
}

func (s *SegmentStore) DespawnSegment(id SegmentID) {
	delete(s.segments, id)
}

func (s *SegmentStore) Get(id SegmentID) (Segment, bool) {
	seg, ok := s.segments[id]
	return seg, ok
}

// List returns all live segments ordered by id.
func (s *SegmentStore) List() []Segment {
	ids := maps.Keys(s.segments)
	slices.Sort(ids)

	out := make([]Segment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.segments[id])
	}
	return out
}

// RemoveLine despawns every segment drawn for line and returns how many
// there were.
func (s *SegmentStore) RemoveLine(line metro.LineID) int {
	removed := 0
	for id, seg := range s.segments {
		if seg.Line == line {
			delete(s.segments, id)
			removed++
		}
	}
	return removed
}

func (s *SegmentStore) Len() int {
	return len(s.segments)
}
