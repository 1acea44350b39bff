package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
	"go.uber.org/zap"
)

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// PGStore is the Postgres telemetry store, used when DATABASE_URL is set.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	zap.S().Infof("DB: connected to Postgres")
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	zap.S().Infof("DB: Postgres schema ensured")
	return nil
}

func (s *PGStore) CreateSnapshot(ctx context.Context, sessionID string, takenAt time.Time) (string, error) {
	snapshotID := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		"INSERT INTO sim_snapshots (snapshot_id, session_id, taken_at_utc) VALUES ($1, $2, $3)",
		snapshotID, sessionID, takenAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snapshotID, nil
}

func (s *PGStore) InsertTickStats(ctx context.Context, snapshotID string, sample metrics.Sample) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_tick_stats (
			snapshot_id, session_id, tick, stations, waiting, onboard,
			delivered, active_lines, trains, taken_at_utc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		snapshotID, sample.SessionID, int64(sample.Tick), sample.Stations, sample.Waiting, sample.Onboard,
		sample.Delivered, sample.ActiveLines, len(sample.Trains), sample.TakenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tick stats: %w", err)
	}
	return nil
}

func (s *PGStore) UpsertTrainPositions(ctx context.Context, snapshotID string, sample metrics.Sample) error {
	if len(sample.Trains) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range sample.Trains {
		args := []any{
			t.TrainKey, snapshotID, sample.SessionID, t.Line, t.LastStation, t.NextStation,
			t.X, t.Y, t.Status, t.Passengers, sample.TakenAt.UTC(),
		}
		batch.Queue(`
			INSERT INTO sim_train_current (
				train_key, snapshot_id, session_id, line_id, last_station, next_station,
				x, y, status, passengers, taken_at_utc, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			ON CONFLICT (train_key) DO UPDATE SET
				snapshot_id = EXCLUDED.snapshot_id,
				session_id = EXCLUDED.session_id,
				line_id = EXCLUDED.line_id,
				last_station = EXCLUDED.last_station,
				next_station = EXCLUDED.next_station,
				x = EXCLUDED.x,
				y = EXCLUDED.y,
				status = EXCLUDED.status,
				passengers = EXCLUDED.passengers,
				taken_at_utc = EXCLUDED.taken_at_utc,
				updated_at = NOW()
		`, args...)
		batch.Queue(`
			INSERT INTO sim_train_history (
				train_key, snapshot_id, session_id, line_id, last_station, next_station,
				x, y, status, passengers, taken_at_utc
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT DO NOTHING
		`, args...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write train positions: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PGStore) GetBaseline(ctx context.Context, sessionID string) (*metrics.Baseline, error) {
	var b metrics.Baseline
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, waiting_mean, waiting_stddev, sample_count
		FROM sim_congestion_baselines
		WHERE session_id = $1
	`, sessionID).Scan(&b.SessionID, &b.WaitingMean, &b.WaitingStdDev, &b.SampleCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) SaveBaseline(ctx context.Context, b metrics.Baseline) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_congestion_baselines (session_id, waiting_mean, waiting_stddev, sample_count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			waiting_mean = EXCLUDED.waiting_mean,
			waiting_stddev = EXCLUDED.waiting_stddev,
			sample_count = EXCLUDED.sample_count,
			updated_at = NOW()
	`, b.SessionID, b.WaitingMean, b.WaitingStdDev, b.SampleCount)
	return err
}

func (s *PGStore) RecordHealthStatus(ctx context.Context, status metrics.HealthStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_health_history (session_id, status, waiting, z_score, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, status.SessionID, status.Status, status.Waiting, status.ZScore, status.RecordedAt.UTC())
	return err
}

func (s *PGStore) LatestHealthStatus(ctx context.Context, sessionID string) (*metrics.HealthStatus, error) {
	var status metrics.HealthStatus
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, status, waiting, z_score, recorded_at
		FROM sim_health_history
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, sessionID).Scan(&status.SessionID, &status.Status, &status.Waiting, &status.ZScore, &status.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *PGStore) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := time.Now().Add(-retention).UTC()

	totalDeleted := int64(0)
	for _, q := range []string{
		"DELETE FROM sim_train_history WHERE taken_at_utc < $1",
		"DELETE FROM sim_tick_stats WHERE taken_at_utc < $1",
		"DELETE FROM sim_train_current WHERE taken_at_utc < $1",
		"DELETE FROM sim_health_history WHERE recorded_at < $1",
		"DELETE FROM sim_snapshots WHERE taken_at_utc < $1",
	} {
		tag, err := s.pool.Exec(ctx, q, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup: %w", err)
		}
		totalDeleted += tag.RowsAffected()
	}

	if totalDeleted > 0 {
		zap.S().Infof("Cleanup: deleted %d Postgres records older than %s", totalDeleted, retention)
	}
	return nil
}
