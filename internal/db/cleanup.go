package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cleanup deletes telemetry older than the retention duration
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := formatTime(time.Now().Add(-retention))

	db.lockWrite()
	defer db.unlockWrite()

	queries := []struct {
		name  string
		query string
	}{
		{name: "train_history", query: "DELETE FROM sim_train_history WHERE taken_at_utc < ?"},
		{name: "tick_stats", query: "DELETE FROM sim_tick_stats WHERE taken_at_utc < ?"},
		{name: "train_current", query: "DELETE FROM sim_train_current WHERE taken_at_utc < ?"},
		{name: "health_history", query: "DELETE FROM sim_health_history WHERE recorded_at < ?"},
		{name: "snapshots", query: "DELETE FROM sim_snapshots WHERE taken_at_utc < ?"},
	}

	totalDeleted := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		zap.S().Infof("Cleanup: deleted %d records older than %s", totalDeleted, retention)
	}
	return nil
}
