package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/mlt/internal/persistence"
)

// Schema creates the run and fold tables
const Schema = `
CREATE TABLE IF NOT EXISTS mlt_runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	splitter    TEXT NOT NULL,
	status      TEXT NOT NULL,
	folds       INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS mlt_folds (
	run_id       TEXT NOT NULL REFERENCES mlt_runs(id) ON DELETE CASCADE,
	fold_index   INTEGER NOT NULL,
	train_rows   INTEGER NOT NULL,
	test_rows    INTEGER NOT NULL,
	purged       INTEGER NOT NULL,
	embargoed    INTEGER NOT NULL,
	train_start  TIMESTAMPTZ NOT NULL,
	train_end    TIMESTAMPTZ NOT NULL,
	test_start   TIMESTAMPTZ NOT NULL,
	test_end     TIMESTAMPTZ NOT NULL,
	inner_splits INTEGER NOT NULL DEFAULT 0,
	duration_ns  BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, fold_index)
);`

// Migrate applies Schema
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// runRepo implements persistence.RunRepo for PostgreSQL
type runRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRunRepo creates a new PostgreSQL run repository
func NewRunRepo(db *sqlx.DB, timeout time.Duration) persistence.RunRepo {
	return &runRepo{
		db:      db,
		timeout: timeout,
	}
}

// SaveRun upserts a run record
func (r *runRepo) SaveRun(ctx context.Context, run persistence.RunRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO mlt_runs (id, name, splitter, status, folds, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			folds = EXCLUDED.folds,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Name, run.Splitter, run.Status, run.Folds, run.Error,
		run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveFold upserts a fold record
func (r *runRepo) SaveFold(ctx context.Context, fold persistence.FoldRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO mlt_folds (run_id, fold_index, train_rows, test_rows, purged, embargoed,
			train_start, train_end, test_start, test_end, inner_splits, duration_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, fold_index) DO UPDATE SET
			train_rows = EXCLUDED.train_rows,
			test_rows = EXCLUDED.test_rows,
			purged = EXCLUDED.purged,
			embargoed = EXCLUDED.embargoed,
			train_start = EXCLUDED.train_start,
			train_end = EXCLUDED.train_end,
			test_start = EXCLUDED.test_start,
			test_end = EXCLUDED.test_end,
			inner_splits = EXCLUDED.inner_splits,
			duration_ns = EXCLUDED.duration_ns`

	_, err := r.db.ExecContext(ctx, query,
		fold.RunID, fold.Index, fold.TrainRows, fold.TestRows, fold.Purged, fold.Embargoed,
		fold.TrainStart, fold.TrainEnd, fold.TestStart, fold.TestEnd,
		fold.InnerSplits, int64(fold.Duration))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("fold %d references unknown run %s: %w", fold.Index, fold.RunID, err)
		}
		return fmt.Errorf("failed to save fold %d: %w", fold.Index, err)
	}
	return nil
}

// GetRun finds a run by ID
func (r *runRepo) GetRun(ctx context.Context, id string) (*persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, splitter, status, folds, error, started_at, finished_at
		FROM mlt_runs
		WHERE id = $1`

	var run persistence.RunRecord
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// ListFolds returns a run's folds in index order
func (r *runRepo) ListFolds(ctx context.Context, runID string) ([]persistence.FoldRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, fold_index, train_rows, test_rows, purged, embargoed,
			train_start, train_end, test_start, test_end, inner_splits, duration_ns
		FROM mlt_folds
		WHERE run_id = $1
		ORDER BY fold_index`

	var folds []persistence.FoldRecord
	if err := r.db.SelectContext(ctx, &folds, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list folds for run %s: %w", runID, err)
	}
	return folds, nil
}
