package feed

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Anchor is where the world origin is pinned on the map (Plaça de Catalunya).
var Anchor = orb.Point{2.1700, 41.3870}

// MetersPerUnit is the map scale of one world unit.
const MetersPerUnit = 10.0

// ToLonLat projects a world position onto the map around Anchor.
// World +Y is north.
func ToLonLat(p orb.Point) orb.Point {
	if p.X() == 0 && p.Y() == 0 {
		return Anchor
	}
	distance := math.Hypot(p.X(), p.Y()) * MetersPerUnit
	bearing := math.Atan2(p.X(), p.Y()) * 180 / math.Pi
	return geo.PointAtBearingAndDistance(Anchor, bearing, distance)
}

// Bearing is the compass heading from a to b in degrees (0-360)
func Bearing(a, b orb.Point) float64 {
	return math.Mod(geo.Bearing(ToLonLat(a), ToLonLat(b))+360, 360)
}
