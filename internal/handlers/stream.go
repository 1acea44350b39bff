package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"github.com/mini-rodalies-3d/metrosim/internal/events"
	"github.com/mini-rodalies-3d/metrosim/internal/sim"
)

// Stream ids clients pass as ?stream=
const (
	SnapshotStream = "snapshot"
	LinesStream    = "lines"
	HoverStream    = "hover"
)

// StreamSources are the session event feeds published over SSE. Nil
// sources get no stream.
type StreamSources struct {
	Snapshots *events.Multiplexer[sim.Snapshot]
	Lines     *events.Multiplexer[events.ActiveLinesChanged]
	Hovers    *events.Multiplexer[events.StationHovered]
}

// SessionStreams returns every feed of session.
func SessionStreams(session *sim.Session) StreamSources {
	return StreamSources{
		Snapshots: session.Snapshots(),
		Lines:     session.LineEvents(),
		Hovers:    session.HoverEvents(),
	}
}

// StreamServer forwards session events to server-sent event clients
type StreamServer struct {
	s     *sse.Server
	stops []func()
}

func NewStreamServer(src StreamSources) *StreamServer {
	s := &StreamServer{s: sse.New()}
	// events are only interesting live
	s.s.AutoReplay = false
	if src.Snapshots != nil {
		relay(s, SnapshotStream, src.Snapshots)
	}
	if src.Lines != nil {
		relay(s, LinesStream, src.Lines)
	}
	if src.Hovers != nil {
		relay(s, HoverStream, src.Hovers)
	}
	return s
}

// relay subscribes to mux and publishes every event as JSON on stream.
func relay[E any](s *StreamServer, stream string, mux *events.Multiplexer[E]) {
	ch := make(chan E)
	s.s.CreateStream(stream)
	mux.Subscribe("sse "+stream, ch)
	s.stops = append(s.stops, func() {
		mux.Unsubscribe(ch)
		close(ch)
	})

	go func() {
		defer s.s.RemoveStream(stream)
		for e := range ch {
			data, err := json.Marshal(e)
			if err != nil {
				zap.S().Errorf("Stream %s: marshal: %v", stream, err)
				continue
			}
			s.s.TryPublish(stream, &sse.Event{
				Data: data,
			})
		}
	}()
}

// Close stops forwarding and disconnects every client.
func (s *StreamServer) Close() {
	for _, stop := range s.stops {
		stop()
	}
	s.s.Close()
}

func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.s.ServeHTTP(w, r)
}
