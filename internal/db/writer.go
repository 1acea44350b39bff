package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mini-rodalies-3d/metrosim/internal/metrics"
)

// CreateSnapshot creates a new snapshot record and returns its ID
func (db *DB) CreateSnapshot(ctx context.Context, sessionID string, takenAt time.Time) (string, error) {
	db.lockWrite()
	defer db.unlockWrite()

	snapshotID := uuid.New().String()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sim_snapshots (snapshot_id, session_id, taken_at_utc) VALUES (?, ?, ?)",
		snapshotID, sessionID, formatTime(takenAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snapshotID, nil
}

// InsertTickStats stores the aggregate counters of a sample
func (db *DB) InsertTickStats(ctx context.Context, snapshotID string, s metrics.Sample) error {
	db.lockWrite()
	defer db.unlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sim_tick_stats (
			snapshot_id, session_id, tick, stations, waiting, onboard,
			delivered, active_lines, trains, taken_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snapshotID, s.SessionID, int64(s.Tick), s.Stations, s.Waiting, s.Onboard,
		s.Delivered, s.ActiveLines, len(s.Trains), formatTime(s.TakenAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tick stats: %w", err)
	}
	return nil
}

// UpsertTrainPositions updates the current table and appends to history
func (db *DB) UpsertTrainPositions(ctx context.Context, snapshotID string, s metrics.Sample) error {
	db.lockWrite()
	defer db.unlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	takenAt := formatTime(s.TakenAt)

	currentStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sim_train_current (
			train_key, snapshot_id, session_id, line_id, last_station, next_station,
			x, y, status, passengers, taken_at_utc, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (train_key) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			session_id = excluded.session_id,
			line_id = excluded.line_id,
			last_station = excluded.last_station,
			next_station = excluded.next_station,
			x = excluded.x,
			y = excluded.y,
			status = excluded.status,
			passengers = excluded.passengers,
			taken_at_utc = excluded.taken_at_utc,
			updated_at = datetime('now')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare current statement: %w", err)
	}
	defer currentStmt.Close()

	historyStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO sim_train_history (
			train_key, snapshot_id, session_id, line_id, last_station, next_station,
			x, y, status, passengers, taken_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history statement: %w", err)
	}
	defer historyStmt.Close()

	for _, t := range s.Trains {
		args := []interface{}{
			t.TrainKey, snapshotID, s.SessionID, t.Line, t.LastStation, t.NextStation,
			t.X, t.Y, t.Status, t.Passengers, takenAt,
		}
		if _, err := currentStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to upsert train %s: %w", t.TrainKey, err)
		}
		if _, err := historyStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert history %s: %w", t.TrainKey, err)
		}
	}

	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
