package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mini-rodalies-3d/metrosim/internal/config"
	"github.com/mini-rodalies-3d/metrosim/internal/db"
	"github.com/mini-rodalies-3d/metrosim/internal/handlers"
	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
	"github.com/mini-rodalies-3d/metrosim/internal/sim"
	"github.com/mini-rodalies-3d/metrosim/internal/static"
)

// telemetryStore is implemented by both the SQLite and the Postgres store.
type telemetryStore interface {
	metrics.Store
	handlers.HealthRepository
	EnsureSchema(ctx context.Context) error
	Close() error
}

func main() {
	defer zap.S().Sync()
	level := zap.LevelFlag("log-level", zap.InfoLevel, "set log level (overrides LOG_LEVEL)")
	flag.Parse()
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(*level)
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	cfg := config.Load()
	if !flagSet("log-level") {
		if l, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
			zcfg.Level.SetLevel(l.Level())
		} else {
			zap.S().Warnf("Config: LOG_LEVEL=%q: %v", cfg.LogLevel, err)
		}
	}
	zap.S().Infof("Config loaded: tick=%v, telemetry=%v, retention=%v", cfg.TickInterval, cfg.TelemetryInterval, cfg.RetentionDuration)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// Telemetry store
	// ═══════════════════════════════════════════════════════
	store, err := openStore(ctx, cfg)
	if err != nil {
		zap.S().Fatalf("Failed to open telemetry store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		zap.S().Fatalf("Failed to ensure database schema: %v", err)
	}

	// ═══════════════════════════════════════════════════════
	// Session
	// ═══════════════════════════════════════════════════════
	opts := sim.Options{
		TrainSpeed:             cfg.TrainSpeed,
		PassengerSpawnInterval: cfg.PassengerSpawnInterval,
		StationSpawnInterval:   cfg.StationSpawnInterval,
		BoardingInterval:       cfg.BoardingInterval,
		Seed:                   cfg.Seed,
	}
	if cfg.WorldFile != "" {
		stations, err := static.LoadLayout(cfg.WorldFile)
		if err != nil {
			zap.S().Fatalf("Failed to load world %s: %v", cfg.WorldFile, err)
		}
		opts.Stations = stations
	}
	session := sim.NewSession(opts)

	go session.Run(ctx, cfg.TickInterval)
	go runTelemetry(ctx, session, store, cfg)

	// ═══════════════════════════════════════════════════════
	// HTTP
	// ═══════════════════════════════════════════════════════
	stream := handlers.NewStreamServer(handlers.SessionStreams(session))
	defer stream.Close()

	router := handlers.NewRouter(handlers.RouterOptions{
		Simulation:     handlers.NewSimulationHandler(session),
		Health:         handlers.NewHealthHandler(store, session.ID().String()),
		Stream:         stream,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zap.S().Infof("API server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("Server failed: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zap.S().Infof("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnf("HTTP shutdown: %v", err)
	}
	zap.S().Infof("Goodbye!")
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func openStore(ctx context.Context, cfg *config.Config) (telemetryStore, error) {
	if cfg.DatabaseURL != "" {
		return db.NewPGStore(ctx, cfg.DatabaseURL)
	}
	return db.Connect(cfg.DatabasePath)
}

func runTelemetry(ctx context.Context, session *sim.Session, store telemetryStore, cfg *config.Config) {
	recorder := metrics.NewRecorder(store)
	ticker := time.NewTicker(cfg.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			recordOnce(ctx, session, recorder, store, cfg)
		case <-ctx.Done():
			zap.S().Infof("Telemetry loop stopped")
			return
		}
	}
}

func recordOnce(ctx context.Context, session *sim.Session, recorder *metrics.Recorder, store telemetryStore, cfg *config.Config) {
	status, err := recorder.Record(ctx, session.Snapshot().Sample())
	if err != nil {
		zap.S().Errorf("Telemetry: %v", err)
	} else {
		zap.S().Debugf("Telemetry: %s, %d waiting", status.Status, status.Waiting)
	}

	if err := store.Cleanup(ctx, cfg.RetentionDuration); err != nil {
		zap.S().Errorf("Cleanup error: %v", err)
	}
}
