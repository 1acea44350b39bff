package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// both stores must keep satisfying the recorder's contract
var (
	_ metrics.Store = (*DB)(nil)
	_ metrics.Store = (*PGStore)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "nested", "metrosim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func sample(sessionID string, takenAt time.Time, x float64) metrics.Sample {
	return metrics.Sample{
		SessionID:   sessionID,
		TakenAt:     takenAt,
		Tick:        42,
		Stations:    3,
		Waiting:     5,
		Onboard:     2,
		Delivered:   7,
		ActiveLines: 1,
		Trains: []metrics.TrainSample{
			{TrainKey: sessionID + ":0", Line: 0, LastStation: 0, NextStation: 1, X: x, Y: -20, Status: "IN_TRANSIT_TO", Passengers: 2},
		},
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.EnsureSchema(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
}

func TestSnapshotsAndPositions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, x := range []float64{-30, -10} {
		s := sample("session-a", now.Add(time.Duration(i)*time.Second), x)
		id, err := db.CreateSnapshot(ctx, s.SessionID, s.TakenAt)
		require.NoError(t, err)
		require.NoError(t, db.InsertTickStats(ctx, id, s))
		require.NoError(t, db.UpsertTrainPositions(ctx, id, s))
	}

	var current, history, stats int
	var x float64
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*), MAX(x) FROM sim_train_current").Scan(&current, &x))
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM sim_train_history").Scan(&history))
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM sim_tick_stats").Scan(&stats))

	assert.Equal(t, 1, current)
	assert.Equal(t, -10.0, x)
	assert.Equal(t, 2, history)
	assert.Equal(t, 2, stats)
}

func TestBaselineAndHealthRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	missing, err := db.GetBaseline(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.SaveBaseline(ctx, metrics.Baseline{SessionID: "s", WaitingMean: 4, WaitingStdDev: 1, SampleCount: 3}))
	require.NoError(t, db.SaveBaseline(ctx, metrics.Baseline{SessionID: "s", WaitingMean: 5, WaitingStdDev: 2, SampleCount: 4}))

	b, err := db.GetBaseline(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, metrics.Baseline{SessionID: "s", WaitingMean: 5, WaitingStdDev: 2, SampleCount: 4}, *b)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.RecordHealthStatus(ctx, metrics.HealthStatus{SessionID: "s", Status: metrics.StatusLearning, Waiting: 3, RecordedAt: at}))
	require.NoError(t, db.RecordHealthStatus(ctx, metrics.HealthStatus{SessionID: "s", Status: metrics.StatusCongested, Waiting: 30, ZScore: 2.5, RecordedAt: at.Add(time.Minute)}))

	latest, err := db.LatestHealthStatus(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, metrics.StatusCongested, latest.Status)
	assert.Equal(t, 30, latest.Waiting)
	assert.True(t, latest.RecordedAt.Equal(at.Add(time.Minute)))
}

func TestCleanupDropsOldRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, takenAt := range []time.Time{now.Add(-48 * time.Hour), now} {
		s := sample("session-c", takenAt, 1)
		s.Trains[0].TrainKey = takenAt.Format(time.RFC3339)
		id, err := db.CreateSnapshot(ctx, s.SessionID, s.TakenAt)
		require.NoError(t, err)
		require.NoError(t, db.InsertTickStats(ctx, id, s))
		require.NoError(t, db.UpsertTrainPositions(ctx, id, s))
	}

	require.NoError(t, db.Cleanup(ctx, 24*time.Hour))

	for _, table := range []string{"sim_snapshots", "sim_tick_stats", "sim_train_history", "sim_train_current"} {
		var count int
		require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 1, count, table)
	}
}

func TestPGStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres store test")
	}
	ctx := context.Background()

	store, err := NewPGStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	session := "pg-test-" + time.Now().Format("150405.000000")
	s := sample(session, time.Now().UTC(), 3)
	id, err := store.CreateSnapshot(ctx, session, s.TakenAt)
	require.NoError(t, err)
	require.NoError(t, store.InsertTickStats(ctx, id, s))
	require.NoError(t, store.UpsertTrainPositions(ctx, id, s))

	require.NoError(t, store.SaveBaseline(ctx, metrics.Baseline{SessionID: session, WaitingMean: 1, SampleCount: 1}))
	b, err := store.GetBaseline(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.SampleCount)

	require.NoError(t, store.RecordHealthStatus(ctx, metrics.HealthStatus{SessionID: session, Status: metrics.StatusHealthy, RecordedAt: time.Now()}))
	latest, err := store.LatestHealthStatus(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, metrics.StatusHealthy, latest.Status)

	require.NoError(t, store.Cleanup(ctx, 24*time.Hour))
}
