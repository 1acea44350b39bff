package events

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mini-rodalies-3d/metrosim/internal/metro"
)

func TestQueueDrainKeepsOrder(t *testing.T) {
	var q Queue[PathChanged]
	var _ Sender[PathChanged] = &q

	q.Send(PathChanged{Line: 0, Path: []metro.StationID{0, 1}})
	q.Send(PathChanged{Line: 1, Path: []metro.StationID{2, 1}})
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	want := []PathChanged{
		{Line: 0, Path: []metro.StationID{0, 1}},
		{Line: 1, Path: []metro.StationID{2, 1}},
	}
	if diff := cmp.Diff(want, q.Drain()); diff != "" {
		t.Errorf("Drain mismatch (-want +got):\n%s", diff)
	}
	if q.Len() != 0 || q.Drain() != nil {
		t.Error("queue should be empty after Drain")
	}
}

func TestMultiplexerFansOut(t *testing.T) {
	sender, mux := NewMultiplexerSender[ActiveLinesChanged]("test")
	a := make(chan ActiveLinesChanged, 1)
	b := make(chan ActiveLinesChanged, 1)
	mux.Subscribe("a", a)
	mux.Subscribe("b", b)

	sender.Send(ActiveLinesChanged{Lines: []metro.LineID{0, 2}})

	for name, ch := range map[string]chan ActiveLinesChanged{"a": a, "b": b} {
		select {
		case got := <-ch:
			if diff := cmp.Diff([]metro.LineID{0, 2}, got.Lines); diff != "" {
				t.Errorf("%s: lines mismatch (-want +got):\n%s", name, diff)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: event not delivered", name)
		}
	}

	mux.Unsubscribe(a)
	if mux.Subscribers() != 1 {
		t.Errorf("Subscribers = %d, want 1", mux.Subscribers())
	}
}

func TestMultiplexerKeepsSendOrder(t *testing.T) {
	const n = 500
	sender, mux := NewMultiplexerSender[ActiveLinesChanged]("test")
	ch := make(chan ActiveLinesChanged, n)
	mux.Subscribe("ordered", ch)

	for i := range n {
		sender.Send(ActiveLinesChanged{Lines: []metro.LineID{metro.LineID(i)}})
	}

	for i := range n {
		select {
		case got := <-ch:
			if diff := cmp.Diff([]metro.LineID{metro.LineID(i)}, got.Lines); diff != "" {
				t.Fatalf("event %d out of order (-want +got):\n%s", i, diff)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestMultiplexerUnsubscribeTwicePanics(t *testing.T) {
	_, mux := NewMultiplexerSender[StationHovered]("test")
	ch := make(chan StationHovered)
	mux.Subscribe("once", ch)
	mux.Unsubscribe(ch)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	mux.Unsubscribe(ch)
}
