package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlt/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.RunRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewRunRepo(sqlx.NewDb(mockDB, "postgres"), 5*time.Second), mock
}

func TestSaveRun(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mlt_runs")).
		WithArgs("run-1", "baseline", "prediction_window", persistence.StatusRunning, 0, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveRun(context.Background(), persistence.RunRecord{
		ID:        "run-1",
		Name:      "baseline",
		Splitter:  "prediction_window",
		Status:    persistence.StatusRunning,
		StartedAt: started,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFold(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fold := persistence.FoldRecord{
		RunID:       "run-1",
		Index:       2,
		TrainRows:   80,
		TestRows:    10,
		Purged:      3,
		Embargoed:   1,
		TrainStart:  day,
		TrainEnd:    day.AddDate(0, 0, 79),
		TestStart:   day.AddDate(0, 0, 84),
		TestEnd:     day.AddDate(0, 0, 93),
		InnerSplits: 4,
		Duration:    250 * time.Millisecond,
	}

	t.Run("upsert", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (run_id, fold_index) DO UPDATE")).
			WithArgs("run-1", 2, 80, 10, 3, 1,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				4, int64(250*time.Millisecond)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveFold(context.Background(), fold))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_run", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mlt_folds")).
			WillReturnError(&pq.Error{Code: "23503"})

		err := repo.SaveFold(context.Background(), fold)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown run run-1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetRun(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)

	columns := []string{"id", "name", "splitter", "status", "folds", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM mlt_runs")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-1", "baseline", "purged_walk_forward", persistence.StatusCompleted, 8, "", started, finished))

	run, err := repo.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 8, run.Folds)
	assert.Equal(t, persistence.StatusCompleted, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))

	mock.ExpectQuery(regexp.QuoteMeta("FROM mlt_runs")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	run, err = repo.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mlt_runs")).
		WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	_, err = repo.GetRun(context.Background(), "broken")
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFolds(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"run_id", "fold_index", "train_rows", "test_rows", "purged", "embargoed",
		"train_start", "train_end", "test_start", "test_end", "inner_splits", "duration_ns"})
	for i := 0; i < 3; i++ {
		rows.AddRow("run-1", i, 20+10*i, 10, 0, 0, day, day.AddDate(0, 0, 19+10*i),
			day.AddDate(0, 0, 20+10*i), day.AddDate(0, 0, 29+10*i), 0, int64(time.Second))
	}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY fold_index")).WithArgs("run-1").WillReturnRows(rows)

	folds, err := repo.ListFolds(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, folds, 3)
	assert.Equal(t, 2, folds[2].Index)
	assert.Equal(t, 40, folds[2].TrainRows)
	assert.Equal(t, time.Second, folds[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS mlt_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), sqlx.NewDb(mockDB, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
