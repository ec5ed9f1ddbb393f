package persistence

import (
	"context"
	"time"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord describes one experiment run over an outer splitter
type RunRecord struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Splitter   string     `json:"splitter" db:"splitter"`
	Status     string     `json:"status" db:"status"`
	Folds      int        `json:"folds" db:"folds"`
	Error      string     `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// FoldRecord is the persisted summary of one outer fold. Time bounds come
// from the run's time column; they are zero when the set is empty.
type FoldRecord struct {
	RunID       string        `json:"run_id" db:"run_id"`
	Index       int           `json:"index" db:"fold_index"`
	TrainRows   int           `json:"train_rows" db:"train_rows"`
	TestRows    int           `json:"test_rows" db:"test_rows"`
	Purged      int           `json:"purged" db:"purged"`
	Embargoed   int           `json:"embargoed" db:"embargoed"`
	TrainStart  time.Time     `json:"train_start" db:"train_start"`
	TrainEnd    time.Time     `json:"train_end" db:"train_end"`
	TestStart   time.Time     `json:"test_start" db:"test_start"`
	TestEnd     time.Time     `json:"test_end" db:"test_end"`
	InnerSplits int           `json:"inner_splits" db:"inner_splits"`
	Duration    time.Duration `json:"duration_ns" db:"duration_ns"`
}

// RunRepo stores runs and their folds
type RunRepo interface {
	// SaveRun inserts or updates a run by ID
	SaveRun(ctx context.Context, run RunRecord) error

	// SaveFold inserts or updates a fold by (run ID, index)
	SaveFold(ctx context.Context, fold FoldRecord) error

	// GetRun returns nil, nil when the run does not exist
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListFolds returns a run's folds ordered by index
	ListFolds(ctx context.Context, runID string) ([]FoldRecord, error)
}

// Repository aggregates the available repositories
type Repository struct {
	Runs RunRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
