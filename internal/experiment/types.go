package experiment

import (
	"context"

	"github.com/sawpanic/mlt/internal/cv"
	"github.com/sawpanic/mlt/internal/frame"
	"github.com/sawpanic/mlt/internal/persistence"
)

// Fold is what a FoldHandler receives for one outer split
type Fold struct {
	RunID string
	Split cv.Split
	Train *frame.Frame
	Test  *frame.Frame
	// Inner holds the inner splits of the training window, with positions
	// translated back to rows of the original dataset
	Inner []cv.Split
}

// FoldHandler is the model collaborator: it fits and evaluates on one fold
type FoldHandler interface {
	HandleFold(ctx context.Context, fold Fold) error
}

// FoldHandlerFunc adapts a function to FoldHandler
type FoldHandlerFunc func(ctx context.Context, fold Fold) error

// HandleFold implements FoldHandler
func (f FoldHandlerFunc) HandleFold(ctx context.Context, fold Fold) error {
	return f(ctx, fold)
}

// Store receives run and fold records as the run progresses.
// persistence.RunRepo satisfies it.
type Store interface {
	SaveRun(ctx context.Context, run persistence.RunRecord) error
	SaveFold(ctx context.Context, fold persistence.FoldRecord) error
}

// FoldResult is one processed outer fold
type FoldResult struct {
	Record persistence.FoldRecord `json:"record"`
	Split  cv.Split               `json:"split"`
	Inner  []cv.Split             `json:"inner,omitempty"`
}

// RunResult is a finished run with its folds in index order
type RunResult struct {
	Run   persistence.RunRecord `json:"run"`
	Folds []FoldResult          `json:"folds"`
}

// Records returns the fold records in index order
func (r *RunResult) Records() []persistence.FoldRecord {
	out := make([]persistence.FoldRecord, len(r.Folds))
	for i, f := range r.Folds {
		out[i] = f.Record
	}
	return out
}
