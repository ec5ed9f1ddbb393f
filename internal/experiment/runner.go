package experiment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/mlt/internal/cv"
	"github.com/sawpanic/mlt/internal/frame"
	"github.com/sawpanic/mlt/internal/metrics"
	"github.com/sawpanic/mlt/internal/persistence"
)

// Config represents runner configuration
type Config struct {
	Name       string // experiment name recorded on the run
	Workers    int    // folds processed concurrently, at least 1
	TimeColumn string // column used for the fold date ranges
}

// Runner drives an outer splitter over a dataset, optionally running an
// inner splitter inside every outer training window
type Runner struct {
	config  Config
	outer   cv.Splitter
	inner   cv.Splitter
	handler FoldHandler
	store   Store
	metrics *metrics.Registry
	clock   Clock
}

// Clock interface for time operations (injectable for testing)
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time { return time.Now() }

// NewRunner creates a runner for the outer splitter
func NewRunner(config Config, outer cv.Splitter) *Runner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Runner{
		config: config,
		outer:  outer,
		clock:  RealClock{},
	}
}

// SetInner sets the splitter applied to each outer training window
func (r *Runner) SetInner(inner cv.Splitter) { r.inner = inner }

// SetHandler sets the fold handler
func (r *Runner) SetHandler(h FoldHandler) { r.handler = h }

// SetStore sets where run and fold records are saved
func (r *Runner) SetStore(s Store) { r.store = s }

// SetMetrics sets the metrics registry
func (r *Runner) SetMetrics(m *metrics.Registry) { r.metrics = m }

// SetClock sets the clock implementation (for testing)
func (r *Runner) SetClock(c Clock) { r.clock = c }

// Run splits data and processes every outer fold. Folds are pulled from the
// splitter only as workers free up, and pulling stops on the first error or
// when ctx is cancelled. The result is returned even when the run fails, with
// the folds completed so far.
func (r *Runner) Run(ctx context.Context, data *frame.Frame, labels cv.Labels) (*RunResult, error) {
	times, err := data.TimeColumn(r.config.TimeColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve time column: %w", err)
	}

	folds, err := r.outer.Split(data, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}
	defer folds.Stop()

	run := persistence.RunRecord{
		ID:        uuid.New().String(),
		Name:      r.config.Name,
		Splitter:  r.outer.Name(),
		Status:    persistence.StatusRunning,
		StartedAt: r.clock.Now(),
	}
	if err := r.saveRun(ctx, run); err != nil {
		return nil, err
	}
	r.metrics.StartRun()

	log.Info().
		Str("run_id", run.ID).
		Str("name", run.Name).
		Str("splitter", run.Splitter).
		Int("rows", data.Len()).
		Int("workers", r.config.Workers).
		Msg("Run started")

	var (
		mu      sync.Mutex
		results []FoldResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for gctx.Err() == nil {
		s, ok := folds.Next()
		if !ok {
			break
		}
		g.Go(func() error {
			// a slot may free up only after another fold failed
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.processFold(gctx, run.ID, data, labels, times, s)
			if err != nil {
				return fmt.Errorf("fold %d: %w", s.Index, err)
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Split.Index < results[j].Split.Index })

	finished := r.clock.Now()
	run.FinishedAt = &finished
	run.Folds = len(results)
	run.Status = persistence.StatusCompleted
	if runErr != nil {
		run.Status = persistence.StatusFailed
		run.Error = runErr.Error()
	}

	// the final record is saved even when ctx is done
	if err := r.saveRun(context.WithoutCancel(ctx), run); err != nil {
		runErr = errors.Join(runErr, err)
	}
	r.metrics.ObserveRun(run.Status)

	event := log.Info()
	if runErr != nil {
		event = log.Error().Err(runErr)
	}
	event.
		Str("run_id", run.ID).
		Str("status", run.Status).
		Int("folds", run.Folds).
		Dur("elapsed", finished.Sub(run.StartedAt)).
		Msg("Run finished")

	return &RunResult{Run: run, Folds: results}, runErr
}

func (r *Runner) processFold(ctx context.Context, runID string, data *frame.Frame, labels cv.Labels, times []time.Time, s cv.Split) (FoldResult, error) {
	timer := r.metrics.StartFoldTimer(r.outer.Name(), s.Index)
	r.metrics.ObserveSplit(r.outer.Name(), s)

	record := persistence.FoldRecord{
		RunID:     runID,
		Index:     s.Index,
		TrainRows: len(s.Train),
		TestRows:  len(s.Test),
		Purged:    s.Purged,
		Embargoed: s.Embargoed,
	}
	record.TrainStart, record.TrainEnd, _ = frame.Span(times, s.Train)
	record.TestStart, record.TestEnd, _ = frame.Span(times, s.Test)

	log.Info().
		Str("run_id", runID).
		Int("fold", s.Index).
		Time("train_start", record.TrainStart).
		Time("train_end", record.TrainEnd).
		Time("test_start", record.TestStart).
		Time("test_end", record.TestEnd).
		Int("train_rows", record.TrainRows).
		Int("test_rows", record.TestRows).
		Msg("Fold training window")

	inner, err := r.innerSplits(data, labels, s.Train)
	if err != nil {
		return FoldResult{}, err
	}
	record.InnerSplits = len(inner)

	if r.handler != nil {
		fold := Fold{
			RunID: runID,
			Split: s,
			Train: data.Take(s.Train),
			Test:  data.Take(s.Test),
			Inner: inner,
		}
		if err := r.handler.HandleFold(ctx, fold); err != nil {
			return FoldResult{}, fmt.Errorf("handler failed: %w", err)
		}
	}

	record.Duration = timer.Stop()

	if r.store != nil {
		if err := r.store.SaveFold(ctx, record); err != nil {
			return FoldResult{}, fmt.Errorf("failed to save fold: %w", err)
		}
	}

	return FoldResult{Record: record, Split: s, Inner: inner}, nil
}

func (r *Runner) innerSplits(data *frame.Frame, labels cv.Labels, train cv.Positions) ([]cv.Split, error) {
	if r.inner == nil {
		return nil, nil
	}
	out, err := InnerSplits(r.inner, data, labels, train)
	if err != nil {
		return nil, err
	}
	for _, s := range out {
		r.metrics.ObserveSplit(r.inner.Name(), s)
	}
	return out, nil
}

// InnerSplits runs inner on the training rows of data and maps its positions
// back to rows of data
func InnerSplits(inner cv.Splitter, data *frame.Frame, labels cv.Labels, train cv.Positions) ([]cv.Split, error) {
	if len(train) == 0 {
		return nil, nil
	}

	var innerLabels cv.Labels
	if col, ok := labels.(frame.Column); ok {
		innerLabels = col.Take(train)
	}

	folds, err := inner.Split(data.Take(train), innerLabels)
	if err != nil {
		return nil, fmt.Errorf("inner split failed: %w", err)
	}

	var out []cv.Split
	for _, s := range folds.All() {
		s.Train = cv.Remap(s.Train, train)
		s.Test = cv.Remap(s.Test, train)
		out = append(out, s)
	}
	return out, nil
}

func (r *Runner) saveRun(ctx context.Context, run persistence.RunRecord) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}
