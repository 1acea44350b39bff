// Package feed publishes the live session as a GTFS-realtime feed so that
// ordinary transit map clients can follow the simulated trains.
package feed

import (
	"fmt"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/sim"
	"github.com/paulmach/orb"
	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

const gtfsRealtimeVersion = "2.0"

// RouteID is the GTFS route id a line is published under.
func RouteID(line int) string {
	return fmt.Sprintf("line-%d", line)
}

// StopID is the GTFS stop id a station is published under.
func StopID(station int) string {
	return fmt.Sprintf("station-%d", station)
}

// BuildVehiclePositions converts a snapshot into a full-dataset
// VehiclePositions feed with one entity per train.
func BuildVehiclePositions(snap sim.Snapshot, now time.Time) *gtfs.FeedMessage {
	timestamp := uint64(now.Unix())

	positions := make(map[int]orb.Point, len(snap.Stations))
	for _, st := range snap.Stations {
		positions[int(st.ID)] = orb.Point{st.X, st.Y}
	}

	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(timestamp),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(snap.Trains)),
	}

	for _, t := range snap.Trains {
		world := orb.Point{t.X, t.Y}
		lonlat := ToLonLat(world)

		position := &gtfs.Position{
			Latitude:  proto.Float32(float32(lonlat.Lat())),
			Longitude: proto.Float32(float32(lonlat.Lon())),
		}
		if t.Last != t.Next {
			from, okFrom := positions[int(t.Last)]
			to, okTo := positions[int(t.Next)]
			if okFrom && okTo {
				position.Bearing = proto.Float32(float32(Bearing(from, to)))
			}
		}

		status := gtfs.VehiclePosition_IN_TRANSIT_TO
		if t.Stopped {
			status = gtfs.VehiclePosition_STOPPED_AT
		}

		vehicleID := fmt.Sprintf("%s:%d", snap.SessionID, t.ID)
		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{
			Id: proto.String(vehicleID),
			Vehicle: &gtfs.VehiclePosition{
				Trip: &gtfs.TripDescriptor{
					RouteId: proto.String(RouteID(int(t.Line))),
				},
				Vehicle: &gtfs.VehicleDescriptor{
					Id:    proto.String(vehicleID),
					Label: proto.String(fmt.Sprintf("L%d-%d", t.Line, t.ID)),
				},
				Position:      position,
				StopId:        proto.String(StopID(int(t.Next))),
				CurrentStatus: status.Enum(),
				Timestamp:     proto.Uint64(timestamp),
			},
		})
	}

	return msg
}

// Marshal encodes a feed in the protobuf wire format.
func Marshal(msg *gtfs.FeedMessage) ([]byte, error) {
	b, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return b, nil
}
