package cv

import (
	"iter"
	"time"

	"github.com/rs/zerolog/log"
)

// Dataset is the tabular input a splitter reads. Rows are addressed by
// position; at least one timestamp column must be reachable by name.
type Dataset interface {
	Len() int
	TimeColumn(name string) ([]time.Time, error)
}

// Labels is the optional target column passed alongside a Dataset
type Labels interface {
	Len() int
}

// Split is one (train, test) pair. Positions index the dataset handed to
// Split, never an intermediate filtered copy.
type Split struct {
	Index     int       `json:"index"`
	Train     Positions `json:"train"`
	Test      Positions `json:"test"`
	Purged    int       `json:"purged"`    // training rows removed by purge
	Embargoed int       `json:"embargoed"` // training rows removed by embargo after purge
}

// Splitter partitions an ordered dataset into train/test folds.
// Implementations are immutable after construction.
type Splitter interface {
	// Split validates data and returns the lazily generated folds. All
	// precondition failures are returned here, before any fold exists.
	Split(data Dataset, labels Labels) (*Folds, error)

	// NSplits returns the number of folds Split yields without generating them
	NSplits() (int, error)

	// Name identifies the splitter variant in logs, metrics and records
	Name() string
}

// Folds is a finite, single-pass sequence of splits. Each split is computed
// when pulled; once drained or stopped the sequence stays empty. A Folds
// value must not be consumed from several goroutines at once.
type Folds struct {
	splitter string
	next     func() (Split, bool)
	pulled   int
}

func newFolds(splitter string, next func() (Split, bool)) *Folds {
	return &Folds{splitter: splitter, next: next}
}

// Next computes and returns the next split, false once the sequence is exhausted
func (f *Folds) Next() (Split, bool) {
	if f.next == nil {
		return Split{}, false
	}
	s, ok := f.next()
	if !ok {
		f.next = nil
		return Split{}, false
	}
	s.Index = f.pulled
	f.pulled++

	log.Debug().
		Str("splitter", f.splitter).
		Int("fold", s.Index).
		Int("train_rows", len(s.Train)).
		Int("test_rows", len(s.Test)).
		Int("purged", s.Purged).
		Int("embargoed", s.Embargoed).
		Msg("Generated fold")

	return s, true
}

// Stop abandons the remaining folds
func (f *Folds) Stop() { f.next = nil }

// Pulled returns how many folds have been produced so far
func (f *Folds) Pulled() int { return f.pulled }

// All ranges over the remaining folds keyed by fold index
func (f *Folds) All() iter.Seq2[int, Split] {
	return func(yield func(int, Split) bool) {
		for {
			s, ok := f.Next()
			if !ok || !yield(s.Index, s) {
				return
			}
		}
	}
}

// Collect drains the remaining folds into a slice
func (f *Folds) Collect() []Split {
	var out []Split
	for _, s := range f.All() {
		out = append(out, s)
	}
	return out
}
