package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stopsTxt = "\ufeffstop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
	"71801,Barcelona-Sants,41.3792,2.1400,1,\n" +
	"71801-1,Sants platform 1,41.3792,2.1401,0,71801\n" +
	"78805,Plaça de Catalunya,41.3864,2.1700,,\n" +
	"broken,Nowhere,not-a-number,2.0,0,\n"

func TestParseStops(t *testing.T) {
	stops, err := parseStops(strings.NewReader(stopsTxt))
	require.NoError(t, err)
	require.Len(t, stops, 3)

	assert.Equal(t, Stop{
		StopID:       "71801",
		StopName:     "Barcelona-Sants",
		StopLat:      41.3792,
		StopLon:      2.1400,
		LocationType: 1,
	}, stops[0])
	assert.Equal(t, "71801", stops[1].ParentStation)
	assert.Equal(t, 0, stops[2].LocationType)
}

func TestStopFilters(t *testing.T) {
	stops, err := parseStops(strings.NewReader(stopsTxt))
	require.NoError(t, err)

	assert.True(t, stops[0].IsStation())
	assert.False(t, stops[1].IsStation())
	assert.True(t, stops[2].IsStation())
	assert.False(t, Stop{LocationType: 2}.IsStation())

	assert.True(t, stops[0].HasValidCoordinate())
	assert.False(t, Stop{}.HasValidCoordinate())
	assert.False(t, Stop{StopLat: 91, StopLon: 2}.HasValidCoordinate())
}

func TestParseStopsFromZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("stops.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte(stopsTxt))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	stops, err := ParseStops(path)
	require.NoError(t, err)
	assert.Len(t, stops, 3)
}

func TestParseStopsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, err = ParseStops(path)
	assert.ErrorIs(t, err, ErrNoStops)

	_, err = ParseStops(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}
