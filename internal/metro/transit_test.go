package metro

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

// straightLine builds A(-10,0) - B(0,0) - C(30,0) as line 0.
func straightLine(a, b, c Kind) *Network {
	n := NewNetwork([]Station{
		NewStation(a, orb.Point{-10, 0}),
		NewStation(b, orb.Point{0, 0}),
		NewStation(c, orb.Point{30, 0}),
	})
	if err := n.ApplyPath(0, []StationID{0, 1, 2}); err != nil {
		panic(err)
	}
	return n
}

func TestBoardingThreshold(t *testing.T) {
	tests := []struct {
		name      string
		kinds     [3]Kind
		last      StationID
		wantBoard bool
	}{
		{
			name:      "heading away from the only target",
			kinds:     [3]Kind{Square, Triangle, Circle},
			last:      0,
			wantBoard: false,
		},
		{
			name:      "heading toward the only target",
			kinds:     [3]Kind{Square, Triangle, Circle},
			last:      2,
			wantBoard: true,
		},
		{
			name:      "targets on both ends, heading to the far one",
			kinds:     [3]Kind{Square, Triangle, Square},
			last:      0,
			wantBoard: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := straightLine(tt.kinds[0], tt.kinds[1], tt.kinds[2])
			n.Stations[1].Passengers = []Passenger{{Target: Square}}
			n.Trains = []Train{{Line: 0, Last: tt.last, Next: 1, Cars: 1, Stopped: true}}

			stats := n.BoardPassengers()
			train := n.Trains[0]

			if tt.wantBoard {
				if stats.Boarded != 1 || len(train.Passengers) != 1 || len(n.Stations[1].Passengers) != 0 {
					t.Fatalf("expected boarding, stats=%+v train=%+v", stats, train)
				}
				if !train.Stopped {
					t.Error("train must stay at the station after boarding")
				}
				return
			}

			if stats.Boarded != 0 || len(n.Stations[1].Passengers) != 1 {
				t.Fatalf("expected no boarding, stats=%+v", stats)
			}
			if train.Stopped || train.Last != 1 || train.Next != 2 || train.Traveled != 0 {
				t.Errorf("expected departure 1→2, got %+v", train)
			}
		})
	}
}

// A passenger boards when the next hop brings any reachable target closer,
// even if it leaves a nearer target behind.
func TestBoardingTowardFartherTarget(t *testing.T) {
	// A(-10) Square - B(0) - C(30) - D(100) Square, train at B coming from A
	n := NewNetwork([]Station{
		NewStation(Square, orb.Point{-10, 0}),
		NewStation(Triangle, orb.Point{0, 0}),
		NewStation(Circle, orb.Point{30, 0}),
		NewStation(Square, orb.Point{100, 0}),
	})
	if err := n.ApplyPath(0, []StationID{0, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	n.Stations[1].Passengers = []Passenger{{Target: Square}}
	n.Trains = []Train{{Line: 0, Last: 0, Next: 1, Cars: 1, Stopped: true}}

	// the nearest square gets farther, the other one gets closer
	if n.Distance(2, 0) <= n.Distance(1, 0) || n.Distance(2, 3) >= n.Distance(1, 3) {
		t.Fatalf("bad fixture: distances %v %v %v %v", n.Distance(1, 0), n.Distance(2, 0), n.Distance(1, 3), n.Distance(2, 3))
	}

	stats := n.BoardPassengers()
	if stats.Boarded != 1 || len(n.Trains[0].Passengers) != 1 {
		t.Fatalf("expected boarding, stats=%+v train=%+v", stats, n.Trains[0])
	}
}

func TestBoardPassengersOnePerCall(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	n.Stations[1].Passengers = []Passenger{{Target: Square}, {Target: Square}, {Target: Circle}}
	n.Trains = []Train{{Line: 0, Last: 0, Next: 1, Cars: 1, Stopped: true}}

	for i := 1; i <= 2; i++ {
		n.BoardPassengers()
		if got := len(n.Trains[0].Passengers); got != i {
			t.Fatalf("after call %d: %d onboard", i, got)
		}
	}

	n.BoardPassengers()
	if n.Trains[0].Stopped {
		t.Error("train should depart once nobody benefits")
	}
	if diff := cmp.Diff([]Passenger{{Target: Circle}}, n.Stations[1].Passengers); diff != "" {
		t.Errorf("waiting passengers mismatch (-want +got):\n%s", diff)
	}
}

func TestBoardPassengersRespectsCapacity(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	for i := 0; i < CarCapacity+2; i++ {
		n.Stations[1].Passengers = append(n.Stations[1].Passengers, Passenger{Target: Square})
	}
	n.Trains = []Train{{Line: 0, Last: 0, Next: 1, Cars: 1, Stopped: true}}

	for i := 0; i < CarCapacity+1; i++ {
		n.BoardPassengers()
	}
	if got := len(n.Trains[0].Passengers); got != CarCapacity {
		t.Errorf("onboard = %d, want %d", got, CarCapacity)
	}
	if n.Trains[0].Stopped {
		t.Error("full train should depart")
	}
}

func TestBoardPassengersDeliversFirst(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	n.Stations[1].Passengers = []Passenger{{Target: Square}}
	n.Trains = []Train{{
		Line: 0, Last: 0, Next: 1, Cars: 1, Stopped: true,
		Passengers: []Passenger{{Target: Square}, {Target: Triangle}},
	}}

	stats := n.BoardPassengers()
	if stats.Delivered != 1 || n.Delivered != 1 {
		t.Fatalf("expected one delivery, stats=%+v", stats)
	}
	if diff := cmp.Diff([]Passenger{{Target: Square}}, n.Trains[0].Passengers); diff != "" {
		t.Errorf("onboard mismatch (-want +got):\n%s", diff)
	}
	if len(n.Stations[1].Passengers) != 1 {
		t.Error("delivery and boarding must not happen in the same call")
	}
}

func TestBoardPassengersTurnsAroundAtTerminal(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	n.Trains = []Train{{Line: 0, Last: 1, Next: 2, Traveled: 30, Cars: 1, Stopped: true}}

	n.BoardPassengers()
	got := n.Trains[0]
	if got.Stopped || got.Last != 2 || got.Next != 1 {
		t.Errorf("expected turnaround 2→1, got %+v", got)
	}
}

func TestBoardPassengersPanicsOnBranch(t *testing.T) {
	n := NewNetwork([]Station{
		NewStation(Circle, orb.Point{0, 0}),
		NewStation(Square, orb.Point{10, 0}),
		NewStation(Square, orb.Point{-10, 0}),
		NewStation(Square, orb.Point{0, 10}),
	})
	n.AddConnection(0, 1, 0)
	n.AddConnection(0, 2, 0)
	n.AddConnection(0, 3, 0)
	n.Trains = []Train{{Line: 0, Last: 1, Next: 0, Cars: 1, Stopped: true}}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for a branching line")
		}
	}()
	n.BoardPassengers()
}

func TestMoveTrainsClampsAndStops(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	n.Trains = []Train{
		{Line: 0, Last: 1, Next: 2, Cars: 1},
		{Line: 0, Last: 0, Next: 1, Cars: 1, Stopped: true},
	}

	n.MoveTrains(15)
	if got := n.Trains[0]; got.Traveled != 15 || got.Stopped {
		t.Errorf("after 15: %+v", got)
	}
	if got := n.TrainPosition(&n.Trains[0]); got != (orb.Point{15, 0}) {
		t.Errorf("TrainPosition = %v, want [15 0]", got)
	}

	n.MoveTrains(100)
	if got := n.Trains[0]; got.Traveled != 30 || !got.Stopped {
		t.Errorf("after overshoot: %+v", got)
	}
	if n.Trains[1].Traveled != 0 {
		t.Error("stopped trains must not move")
	}
}

func TestSpawnRandomStation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	counts := map[Kind]int{}
	const total = 2000
	for i := 0; i < total; i++ {
		n := NewNetwork(nil)
		id := n.SpawnRandomStation(rng)
		s := n.Stations[id]
		if !WorldExtent.Contains(s.Position) {
			t.Fatalf("station %d outside world: %v", id, s.Position)
		}
		if s.Intensity < 0.1 || s.Intensity > 0.2 {
			t.Fatalf("station %d intensity %v", id, s.Intensity)
		}
		counts[s.Kind]++
	}

	shares := map[Kind]float64{Square: 0.2, Triangle: 0.3, Circle: 0.5}
	for kind, want := range shares {
		got := float64(counts[kind]) / total
		if got < want-0.05 || got > want+0.05 {
			t.Errorf("%s share = %.3f, want about %.1f", kind, got, want)
		}
	}
}

func TestSpawnRandomPassengers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := NewNetwork(DefaultStations())
	n.Stations[0].Intensity = 1
	n.Stations[1].Intensity = 0
	n.Stations[2].Intensity = 1

	for i := 0; i < 10; i++ {
		n.SpawnRandomPassengers(rng)
	}

	if got := len(n.Stations[0].Passengers); got != 10 {
		t.Errorf("station 0: %d passengers, want 10", got)
	}
	if got := len(n.Stations[1].Passengers); got != 0 {
		t.Errorf("station 1: %d passengers, want 0", got)
	}
	if n.WaitingPassengers() != 20 {
		t.Errorf("WaitingPassengers = %d", n.WaitingPassengers())
	}
}

func TestDeployAndRemoveLine(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	if _, err := n.DeployTrain(4); err == nil {
		t.Fatal("expected error deploying on an inactive line")
	}

	train, err := n.DeployTrain(0)
	if err != nil {
		t.Fatal(err)
	}
	if train.Last != 0 || train.Next != 0 || !train.Stopped {
		t.Fatalf("deployed train %+v", train)
	}
	n.Trains[0].Passengers = []Passenger{{Target: Square}}

	if removed := n.RemoveLine(0); removed != 1 {
		t.Fatalf("RemoveLine removed %d trains", removed)
	}
	if len(n.Trains) != 0 || n.IsLineActive(0) {
		t.Error("line 0 should be gone with its trains")
	}
	if got := len(n.Stations[0].Passengers); got != 1 {
		t.Errorf("onboard passenger not returned, station 0 has %d", got)
	}
}

func TestApplyPathRehomesStrandedTrains(t *testing.T) {
	n := straightLine(Circle, Triangle, Square)
	n.Trains = []Train{{Line: 0, Last: 1, Next: 2, Traveled: 4, Cars: 1}}

	if err := n.ApplyPath(0, []StationID{0, 1}); err != nil {
		t.Fatal(err)
	}
	got := n.Trains[0]
	if got.Last != 0 || got.Next != 0 || !got.Stopped || got.Traveled != 0 {
		t.Errorf("stranded train not rehomed: %+v", got)
	}
}
