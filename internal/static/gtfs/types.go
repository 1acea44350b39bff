package gtfs

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopCode      string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
}

// IsStation reports whether the stop is a place passengers enter, rather
// than a platform or entrance belonging to a parent station.
func (s Stop) IsStation() bool {
	switch s.LocationType {
	case 0:
		return s.ParentStation == ""
	case 1:
		return true
	default:
		return false
	}
}

// HasValidCoordinate catches (0,0) and out-of-range coordinates from
// missing or corrupt GTFS data.
func (s Stop) HasValidCoordinate() bool {
	if s.StopLat == 0 && s.StopLon == 0 {
		return false
	}
	return s.StopLat >= -90 && s.StopLat <= 90 && s.StopLon >= -180 && s.StopLon <= 180
}
