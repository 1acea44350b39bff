package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/mini-rodalies-3d/metrosim/internal/static"
	"github.com/mini-rodalies-3d/metrosim/internal/static/gtfs"
)

func main() {
	defer zap.S().Sync()
	level := zap.LevelFlag("log-level", zap.InfoLevel, "set log level")
	gtfsZip := flag.String("gtfs", "data/gtfs/gtfs.zip", "GTFS zip file to read stops.txt from")
	output := flag.String("out", "data/worlds/world.json", "Layout file to write")
	maxStations := flag.Int("max-stations", static.DefaultBuildOptions().MaxStations, "Keep this many stops closest to the centre (0 keeps all)")
	intensity := flag.Float64("intensity", static.DefaultBuildOptions().Intensity, "Passenger spawn intensity of every station")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(*level)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	stops, err := gtfs.ParseStops(*gtfsZip)
	if err != nil {
		zap.S().Fatalf("Failed to read stops: %v", err)
	}

	opts := static.DefaultBuildOptions()
	opts.MaxStations = *maxStations
	opts.Intensity = *intensity
	layout, err := static.BuildLayout(stops, opts)
	if err != nil {
		zap.S().Fatalf("Failed to build layout: %v", err)
	}

	// validate before writing so the simulation can load what we produce
	if _, err := static.Stations(layout); err != nil {
		zap.S().Fatalf("Generated layout is invalid: %v", err)
	}
	if err := static.SaveLayout(*output, layout); err != nil {
		zap.S().Fatalf("Failed to write layout: %v", err)
	}

	for _, l := range layout {
		zap.S().Debugf("  %-30s %-8s (%6.1f, %6.1f)", l.Name, l.Kind, l.X, l.Y)
	}
	zap.S().Infof("Wrote %d stations from %d stops to %s", len(layout), len(stops), *output)
}
