// Package static manages world layouts: the starting stations of a session,
// either hand written or derived from a GTFS feed.
package static

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"

	"github.com/mini-rodalies-3d/metrosim/internal/metro"
	"github.com/mini-rodalies-3d/metrosim/internal/static/gtfs"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var ErrEmptyLayout = errors.New("layout has no stations")

// LayoutStation is one entry of a layout file.
type LayoutStation struct {
	Name      string     `json:"name,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Kind      metro.Kind `json:"kind"`
	Intensity float64    `json:"intensity"`
}

// BuildOptions control how GTFS stops become stations.
type BuildOptions struct {
	// MaxStations keeps the stops closest to the centre of the feed. 0 keeps all.
	MaxStations int
	Intensity   float64
	// Margin is left free on every side of the world extent.
	Margin float64
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxStations: 12,
		Intensity:   0.2,
		Margin:      10,
	}
}

// BuildLayout projects GTFS stations into metro.WorldExtent, preserving
// their relative geography. Kinds are derived from the stop id so the same
// feed always yields the same layout.
func BuildLayout(stops []gtfs.Stop, opts BuildOptions) ([]LayoutStation, error) {
	var candidates []gtfs.Stop
	for _, s := range stops {
		if s.IsStation() && s.HasValidCoordinate() {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyLayout
	}

	center := geoCenter(candidates)
	if opts.MaxStations > 0 && len(candidates) > opts.MaxStations {
		slices.SortStableFunc(candidates, func(a, b gtfs.Stop) int {
			return cmp.Compare(centerDistance(center, a), centerDistance(center, b))
		})
		candidates = candidates[:opts.MaxStations]
	}

	// local equirectangular plane, x scaled by cos(lat)
	cosLat := math.Cos(center.Lat() * math.Pi / 180)
	points := make([]orb.Point, len(candidates))
	var bound orb.Bound
	for i, s := range candidates {
		points[i] = orb.Point{(s.StopLon - center.Lon()) * cosLat, s.StopLat - center.Lat()}
		if i == 0 {
			bound = points[i].Bound()
		} else {
			bound = bound.Extend(points[i])
		}
	}

	target := metro.WorldExtent.Pad(-opts.Margin)
	span := math.Max(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y())
	scale := 0.0
	if span > 0 {
		scale = math.Min(target.Max.X()-target.Min.X(), target.Max.Y()-target.Min.Y()) / span
	}
	mid := bound.Center()

	layout := make([]LayoutStation, len(candidates))
	for i, s := range candidates {
		layout[i] = LayoutStation{
			Name:      s.StopName,
			X:         (points[i].X()-mid.X())*scale + target.Center().X(),
			Y:         (points[i].Y()-mid.Y())*scale + target.Center().Y(),
			Kind:      kindFor(s.StopID),
			Intensity: opts.Intensity,
		}
	}
	return layout, nil
}

func geoCenter(stops []gtfs.Stop) orb.Point {
	var lon, lat float64
	for _, s := range stops {
		lon += s.StopLon
		lat += s.StopLat
	}
	n := float64(len(stops))
	return orb.Point{lon / n, lat / n}
}

func centerDistance(center orb.Point, s gtfs.Stop) float64 {
	return math.Hypot(s.StopLon-center.Lon(), s.StopLat-center.Lat())
}

// kindFor spreads kinds 20% square, 30% triangle, 50% circle like random
// station spawns do.
func kindFor(stopID string) metro.Kind {
	h := fnv.New32a()
	h.Write([]byte(stopID))
	switch h.Sum32() % 10 {
	case 0, 1:
		return metro.Square
	case 2, 3, 4:
		return metro.Triangle
	default:
		return metro.Circle
	}
}

// Stations converts a layout into session stations.
func Stations(layout []LayoutStation) ([]metro.Station, error) {
	if len(layout) == 0 {
		return nil, ErrEmptyLayout
	}

	stations := make([]metro.Station, 0, len(layout))
	for i, l := range layout {
		p := orb.Point{l.X, l.Y}
		if !metro.WorldExtent.Contains(p) {
			return nil, fmt.Errorf("station %d at %v is outside the world", i, p)
		}
		if l.Intensity < 0 || l.Intensity > 1 {
			return nil, fmt.Errorf("station %d intensity %.2f is not in [0, 1]", i, l.Intensity)
		}
		s := metro.NewStation(l.Kind, p)
		s.Intensity = l.Intensity
		stations = append(stations, s)
	}
	return stations, nil
}

// LoadLayout reads a layout file and returns its stations.
func LoadLayout(path string) ([]metro.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layout []LayoutStation
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}

	stations, err := Stations(layout)
	if err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	zap.S().Infof("Layout: loaded %d stations from %s", len(stations), path)
	return stations, nil
}

// SaveLayout writes a layout file, creating its directory if needed.
func SaveLayout(path string, layout []LayoutStation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
