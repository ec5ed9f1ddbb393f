package experiment

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sawpanic/mlt/internal/persistence"
)

// FileStore buffers fold records and writes folds.jsonl through a Writer
// once the run is saved with a final status
type FileStore struct {
	writer *Writer
	mu     sync.Mutex
	folds  map[string][]persistence.FoldRecord
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store writing through w
func NewFileStore(w *Writer) *FileStore {
	return &FileStore{writer: w, folds: make(map[string][]persistence.FoldRecord)}
}

// SaveFold implements Store
func (s *FileStore) SaveFold(_ context.Context, fold persistence.FoldRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folds[fold.RunID] = append(s.folds[fold.RunID], fold)
	return nil
}

// SaveRun implements Store
func (s *FileStore) SaveRun(_ context.Context, run persistence.RunRecord) error {
	if run.Status == persistence.StatusRunning {
		return nil
	}

	s.mu.Lock()
	folds := s.folds[run.ID]
	delete(s.folds, run.ID)
	s.mu.Unlock()

	sort.Slice(folds, func(i, j int) bool { return folds[i].Index < folds[j].Index })
	return s.writer.WriteFolds(run, folds)
}

// MultiStore fans records out to every store, in order
type MultiStore []Store

// SaveRun implements Store
func (m MultiStore) SaveRun(ctx context.Context, run persistence.RunRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.SaveRun(ctx, run))
	}
	return errors.Join(errs...)
}

// SaveFold implements Store
func (m MultiStore) SaveFold(ctx context.Context, fold persistence.FoldRecord) error {
	for _, s := range m {
		if err := s.SaveFold(ctx, fold); err != nil {
			return err
		}
	}
	return nil
}
