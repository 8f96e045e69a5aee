// Package archive persists dispatch outcomes to Postgres so earnings and
// success history survive restarts. The archive is optional: a nil Archive
// is a no-op, and the core never depends on it being reachable.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/scavenger/hunter-service/internal/types"
)

// Archive records task outcomes in the task_outcomes table.
type Archive struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Connect opens a pool against the given database URL and ensures the
// outcomes table exists.
func Connect(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	a := &Archive{pool: pool, logger: logger.With().Str("component", "archive").Logger()}
	if err := a.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_outcomes (
			id UUID PRIMARY KEY,
			cycle_id UUID NOT NULL,
			task_id TEXT NOT NULL,
			source_name TEXT NOT NULL,
			category TEXT NOT NULL,
			reward NUMERIC(12,4) NOT NULL,
			smart_score DOUBLE PRECISION NOT NULL,
			success BOOLEAN NOT NULL,
			execution_time_ms BIGINT NOT NULL,
			error_message TEXT,
			dispatched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure task_outcomes table: %w", err)
	}
	return nil
}

// RecordOutcome inserts one dispatch outcome. Failures are logged, never
// propagated: archival must not break the cycle.
func (a *Archive) RecordOutcome(ctx context.Context, cycleID uuid.UUID, task *types.Task, result *types.ExecutionResult) {
	if a == nil || a.pool == nil {
		return
	}

	var errMsg *string
	if result.Error != "" {
		errMsg = &result.Error
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO task_outcomes
			(id, cycle_id, task_id, source_name, category, reward, smart_score, success, execution_time_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.New(), cycleID, task.ID, task.SourceName, string(task.Category),
		task.Reward, task.SmartScore, result.Success, result.ExecutionTimeMs, errMsg)
	if err != nil {
		a.logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to archive outcome")
	}
}

// Cleanup deletes outcomes older than the retention window and returns the
// number of rows removed.
func (a *Archive) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if a == nil || a.pool == nil {
		return 0, nil
	}
	tag, err := a.pool.Exec(ctx, `
		DELETE FROM task_outcomes WHERE dispatched_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(retention.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("cleanup outcomes: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool.
func (a *Archive) Close() {
	if a != nil && a.pool != nil {
		a.pool.Close()
	}
}
