package cv

import (
	"time"
)

// PurgedWalkForwardConfig configures a PurgedWalkForward splitter
type PurgedWalkForwardConfig struct {
	NSplits        int           `yaml:"n_splits" json:"n_splits"`
	NTestSplits    int           `yaml:"n_test_splits" json:"n_test_splits"`
	MinTrainSplits int           `yaml:"min_train_splits" json:"min_train_splits"`
	MaxTrainSplits int           `yaml:"max_train_splits" json:"max_train_splits"` // 0 means NSplits-NTestSplits
	PredTimeColumn string        `yaml:"pred_time_column" json:"pred_time_column"`
	EvalTimeColumn string        `yaml:"eval_time_column" json:"eval_time_column"`
	Embargo        time.Duration `yaml:"embargo" json:"embargo"`
	SplitByTime    bool          `yaml:"split_by_time" json:"split_by_time"`
}

// DefaultPurgedWalkForwardConfig returns ten partitions, one-partition test
// windows and a two-partition minimum training window
func DefaultPurgedWalkForwardConfig() PurgedWalkForwardConfig {
	return PurgedWalkForwardConfig{
		NSplits:        10,
		NTestSplits:    1,
		MinTrainSplits: 2,
		PredTimeColumn: "prediction_time",
		EvalTimeColumn: "evaluation_time",
	}
}

// PurgedWalkForward is a walk-forward splitter whose training window expands
// from MinTrainSplits partitions up to MaxTrainSplits and then rolls. Every
// training set is purged against its test window; embargo is layered on top
// when configured.
type PurgedWalkForward struct {
	cfg     PurgedWalkForwardConfig
	embargo EmbargoPolicy
}

var _ Splitter = (*PurgedWalkForward)(nil)

// NewPurgedWalkForward validates cfg and returns the splitter
func NewPurgedWalkForward(cfg PurgedWalkForwardConfig) (*PurgedWalkForward, error) {
	if cfg.NSplits <= 1 {
		return nil, configErr("n_splits", cfg.NSplits, "greater than 1")
	}
	if cfg.NTestSplits <= 0 || cfg.NTestSplits >= cfg.NSplits-1 {
		return nil, configErr("n_test_splits", cfg.NTestSplits, "greater than 0 and less than n_splits - 1")
	}
	if cfg.MinTrainSplits <= 0 || cfg.MinTrainSplits >= cfg.NSplits-cfg.NTestSplits {
		return nil, configErr("min_train_splits", cfg.MinTrainSplits, "greater than 0 and less than n_splits - n_test_splits")
	}
	if cfg.MaxTrainSplits < 0 {
		return nil, configErr("max_train_splits", cfg.MaxTrainSplits, "non-negative (0 selects n_splits - n_test_splits)")
	}
	if cfg.MaxTrainSplits == 0 {
		cfg.MaxTrainSplits = cfg.NSplits - cfg.NTestSplits
	}
	if cfg.MaxTrainSplits > cfg.NSplits-cfg.NTestSplits {
		return nil, configErr("max_train_splits", cfg.MaxTrainSplits, "at most n_splits - n_test_splits")
	}
	if cfg.MinTrainSplits > cfg.MaxTrainSplits {
		return nil, configErr("min_train_splits", cfg.MinTrainSplits, "at most max_train_splits")
	}
	if err := checkLeakageColumns(cfg.PredTimeColumn, cfg.EvalTimeColumn, cfg.Embargo); err != nil {
		return nil, err
	}
	return &PurgedWalkForward{cfg: cfg, embargo: EmbargoPolicy{Duration: cfg.Embargo}}, nil
}

func checkLeakageColumns(pred, eval string, embargo time.Duration) error {
	if pred == "" {
		return configErr("pred_time_column", `""`, "a column name")
	}
	if eval == "" {
		return configErr("eval_time_column", `""`, "a column name")
	}
	if embargo < 0 {
		return configErr("embargo", embargo, "non-negative")
	}
	return nil
}

// Name implements Splitter
func (w *PurgedWalkForward) Name() string { return "purged_walk_forward" }

// Config returns the effective configuration, MaxTrainSplits resolved
func (w *PurgedWalkForward) Config() PurgedWalkForwardConfig { return w.cfg }

// NSplits implements Splitter
func (w *PurgedWalkForward) NSplits() (int, error) {
	return w.cfg.NSplits - w.cfg.NTestSplits - w.cfg.MinTrainSplits + 1, nil
}

// FoldBounds returns the first row position of each of the NSplits partitions of data
func (w *PurgedWalkForward) FoldBounds(data Dataset) ([]int, error) {
	pred, _, err := leakageTimes(data, nil, w.cfg.PredTimeColumn, w.cfg.EvalTimeColumn, w.cfg.NSplits)
	if err != nil {
		return nil, err
	}
	return foldBounds(data.Len(), w.cfg.NSplits, w.cfg.SplitByTime, pred), nil
}

// Split implements Splitter
func (w *PurgedWalkForward) Split(data Dataset, labels Labels) (*Folds, error) {
	pred, eval, err := leakageTimes(data, labels, w.cfg.PredTimeColumn, w.cfg.EvalTimeColumn, w.cfg.NSplits)
	if err != nil {
		return nil, err
	}

	all := Range(0, data.Len())
	bounds := foldBounds(data.Len(), w.cfg.NSplits, w.cfg.SplitByTime, pred)
	i, last := w.cfg.MinTrainSplits, w.cfg.NSplits-w.cfg.NTestSplits

	return newFolds(w.Name(), func() (Split, bool) {
		if i > last {
			return Split{}, false
		}
		s := w.fold(i, all, bounds, pred, eval)
		i++
		return s, true
	}), nil
}

// fold builds the split whose test window starts at partition i
func (w *PurgedWalkForward) fold(i int, all Positions, bounds []int, pred, eval []time.Time) Split {
	trainStart := bounds[max(0, i-w.cfg.MaxTrainSplits)]
	trainEnd := bounds[i]
	train := Range(trainStart, trainEnd)

	// the last window takes every remaining row
	testEnd := len(all)
	if i+w.cfg.NTestSplits < w.cfg.NSplits {
		testEnd = bounds[i+w.cfg.NTestSplits]
	}
	test := Range(bounds[i], testEnd)

	start, ok := test.Min()
	if !ok {
		return Split{Train: train, Test: test}
	}
	end, _ := test.Max()

	s := Split{Test: test}
	s.Train, s.Purged, s.Embargoed = w.embargo.guard(all, train, test, start, end, pred, eval)
	return s
}
