package feed

import (
	"testing"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/mini-rodalies-3d/metrosim/internal/sim"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

func TestToLonLat(t *testing.T) {
	assert.Equal(t, Anchor, ToLonLat(orb.Point{0, 0}))

	east := ToLonLat(orb.Point{100, 0})
	assert.InDelta(t, 1000, geo.Distance(Anchor, east), 0.5)
	assert.Greater(t, east.Lon(), Anchor.Lon())
	assert.InDelta(t, Anchor.Lat(), east.Lat(), 1e-4)

	north := ToLonLat(orb.Point{0, 50})
	assert.InDelta(t, 500, geo.Distance(Anchor, north), 0.5)
	assert.Greater(t, north.Lat(), Anchor.Lat())
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(orb.Point{0, 0}, orb.Point{0, 10}), 0.01)
	assert.InDelta(t, 90, Bearing(orb.Point{0, 0}, orb.Point{10, 0}), 0.01)
	assert.InDelta(t, 180, Bearing(orb.Point{0, 10}, orb.Point{0, 0}), 0.01)
	assert.InDelta(t, 270, Bearing(orb.Point{10, 0}, orb.Point{0, 0}), 0.01)
}

func testSnapshot() sim.Snapshot {
	return sim.Snapshot{
		SessionID: "s1",
		Stations: []sim.StationView{
			{ID: 0, X: -30, Y: -20, Kind: metro.Square},
			{ID: 1, X: 20, Y: -20, Kind: metro.Triangle},
		},
		Trains: []sim.TrainView{
			{ID: 0, Line: 2, Last: 0, Next: 0, X: -30, Y: -20, Stopped: true, Cars: 1},
			{ID: 1, Line: 2, Last: 0, Next: 1, X: 0, Y: -20, Traveled: 30, Cars: 1},
		},
	}
}

func TestBuildVehiclePositions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	msg := BuildVehiclePositions(testSnapshot(), now)

	require.NotNil(t, msg.Header)
	assert.Equal(t, "2.0", msg.Header.GetGtfsRealtimeVersion())
	assert.Equal(t, gtfs.FeedHeader_FULL_DATASET, msg.Header.GetIncrementality())
	assert.Equal(t, uint64(1_700_000_000), msg.Header.GetTimestamp())
	require.Len(t, msg.Entity, 2)

	stopped := msg.Entity[0].GetVehicle()
	assert.Equal(t, "s1:0", msg.Entity[0].GetId())
	assert.Equal(t, "line-2", stopped.GetTrip().GetRouteId())
	assert.Equal(t, "station-0", stopped.GetStopId())
	assert.Equal(t, gtfs.VehiclePosition_STOPPED_AT, stopped.GetCurrentStatus())
	assert.Nil(t, stopped.GetPosition().Bearing)

	moving := msg.Entity[1].GetVehicle()
	assert.Equal(t, "station-1", moving.GetStopId())
	assert.Equal(t, gtfs.VehiclePosition_IN_TRANSIT_TO, moving.GetCurrentStatus())
	assert.InDelta(t, 90, moving.GetPosition().GetBearing(), 0.1)

	want := ToLonLat(orb.Point{0, -20})
	assert.InDelta(t, want.Lat(), float64(moving.GetPosition().GetLatitude()), 1e-5)
	assert.InDelta(t, want.Lon(), float64(moving.GetPosition().GetLongitude()), 1e-5)
}

func TestMarshalDecodes(t *testing.T) {
	b, err := Marshal(BuildVehiclePositions(testSnapshot(), time.Now()))
	require.NoError(t, err)

	var decoded gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(b, &decoded))
	assert.Len(t, decoded.Entity, 2)
}

func TestBuildVehiclePositionsEmpty(t *testing.T) {
	msg := BuildVehiclePositions(sim.Snapshot{}, time.Now())
	assert.Empty(t, msg.Entity)
	assert.NotNil(t, msg.Header)
}
