package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
)

// GetBaseline retrieves the congestion baseline of a session, nil if none
func (db *DB) GetBaseline(ctx context.Context, sessionID string) (*metrics.Baseline, error) {
	query := `
		SELECT session_id, waiting_mean, waiting_stddev, sample_count
		FROM sim_congestion_baselines
		WHERE session_id = ?
	`

	var b metrics.Baseline
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(
		&b.SessionID,
		&b.WaitingMean,
		&b.WaitingStdDev,
		&b.SampleCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBaseline upserts a baseline record
func (db *DB) SaveBaseline(ctx context.Context, b metrics.Baseline) error {
	db.lockWrite()
	defer db.unlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sim_congestion_baselines (session_id, waiting_mean, waiting_stddev, sample_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			waiting_mean = excluded.waiting_mean,
			waiting_stddev = excluded.waiting_stddev,
			sample_count = excluded.sample_count,
			updated_at = excluded.updated_at
	`,
		b.SessionID,
		b.WaitingMean,
		b.WaitingStdDev,
		b.SampleCount,
		formatTime(time.Now()),
	)
	return err
}

// RecordHealthStatus appends a congestion assessment
func (db *DB) RecordHealthStatus(ctx context.Context, s metrics.HealthStatus) error {
	db.lockWrite()
	defer db.unlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sim_health_history (session_id, status, waiting, z_score, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		s.SessionID,
		s.Status,
		s.Waiting,
		s.ZScore,
		formatTime(s.RecordedAt),
	)
	return err
}

// LatestHealthStatus returns the newest assessment of a session, nil if none
func (db *DB) LatestHealthStatus(ctx context.Context, sessionID string) (*metrics.HealthStatus, error) {
	var (
		s          metrics.HealthStatus
		recordedAt string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT session_id, status, waiting, z_score, recorded_at
		FROM sim_health_history
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, sessionID).Scan(&s.SessionID, &s.Status, &s.Waiting, &s.ZScore, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
