// Package gtfs reads the parts of a static GTFS feed needed to seed a world
// layout.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var ErrNoStops = errors.New("feed has no stops.txt")

// ParseStops reads stops.txt from a GTFS zip file
func ParseStops(zipPath string) ([]Stop, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "stops.txt" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		stops, err := parseStops(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stops.txt: %w", err)
		}
		zap.S().Infof("GTFS: parsed %d stops from %s", len(stops), zipPath)
		return stops, nil
	}
	return nil, ErrNoStops
}

func parseStops(r io.Reader) ([]Stop, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	idx := makeIndex(header)
	var stops []Stop
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		lat, errLat := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
		lon, errLon := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		locType, _ := strconv.Atoi(getField(record, idx, "location_type"))

		stops = append(stops, Stop{
			StopID:        getField(record, idx, "stop_id"),
			StopCode:      getField(record, idx, "stop_code"),
			StopName:      getField(record, idx, "stop_name"),
			StopLat:       lat,
			StopLon:       lon,
			LocationType:  locType,
			ParentStation: getField(record, idx, "parent_station"),
		})
	}

	if skipped > 0 {
		zap.S().Warnf("GTFS: skipped %d malformed stops", skipped)
	}
	return stops, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// some exporters prepend a UTF-8 BOM to the first column
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
