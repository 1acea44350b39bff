// Package events carries notifications between the line editor, the network
// and anything observing a running session.
package events

import "github.com/mini-rodalies-3d/metrosim/internal/metro"

// Sender accepts events of one type.
type Sender[E any] interface {
	Send(e E)
}

// PathChanged is emitted when a drag gesture commits a line.
type PathChanged struct {
	Line metro.LineID      `json:"line"`
	Path []metro.StationID `json:"path"`
}

// ActiveLinesChanged is emitted after any topology edit.
type ActiveLinesChanged struct {
	Lines []metro.LineID `json:"lines"`
}

// StationHovered is emitted when a line being drawn snaps onto a station.
type StationHovered struct {
	Line    metro.LineID    `json:"line"`
	Station metro.StationID `json:"station"`
}

// Queue buffers events until the owner drains them, usually once per tick.
// It is not safe for concurrent use.
type Queue[E any] struct {
	pending []E
}

func (q *Queue[E]) Send(e E) {
	q.pending = append(q.pending, e)
}

// Drain returns all pending events in send order and empties the queue.
func (q *Queue[E]) Drain() []E {
	out := q.pending
	q.pending = nil
	return out
}

func (q *Queue[E]) Len() int {
	return len(q.pending)
}
