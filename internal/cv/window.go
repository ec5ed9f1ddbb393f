package cv

import (
	"time"
)

// WindowConfig configures a PredictionWindowManager. GapSize, InitialTrainSize
// and NumBarsBetweenTraining are given in trading days and rescaled to
// distinct bars of the training frequency at construction.
type WindowConfig struct {
	GapSize                int       `yaml:"gap_size" json:"gap_size"`
	InitialTrainSize       int       `yaml:"initial_train_size" json:"initial_train_size"`
	NumBarsBetweenTraining int       `yaml:"num_bars_between_training" json:"num_bars_between_training"`
	TrainingFrequency      Frequency `yaml:"training_frequency" json:"training_frequency"`
	TimeColumn             string    `yaml:"time_column" json:"time_column"`
	RollingWindowSize      int       `yaml:"rolling_window_size" json:"rolling_window_size"` // 0 keeps an expanding window
}

// PredictionWindowManager schedules outer-loop retraining: an initial
// training window, a gap, then a test window of NumBarsBetweenTraining bars,
// advancing one test window at a time. It does not purge; the gap is the
// separation between training and prediction.
type PredictionWindowManager struct {
	cfg WindowConfig
}

var _ Splitter = (*PredictionWindowManager)(nil)

// NewPredictionWindowManager validates cfg and rescales its sizes to bars
func NewPredictionWindowManager(cfg WindowConfig) (*PredictionWindowManager, error) {
	freq, err := ParseFrequency(string(cfg.TrainingFrequency))
	if err != nil {
		return nil, err
	}
	cfg.TrainingFrequency = freq

	if cfg.TimeColumn == "" {
		return nil, configErr("time_column", `""`, "a column name")
	}
	if cfg.GapSize < 0 {
		return nil, configErr("gap_size", cfg.GapSize, "non-negative")
	}
	if cfg.InitialTrainSize <= 0 {
		return nil, configErr("initial_train_size", cfg.InitialTrainSize, "positive")
	}
	if cfg.NumBarsBetweenTraining <= 0 {
		return nil, configErr("num_bars_between_training", cfg.NumBarsBetweenTraining, "positive")
	}
	if cfg.RollingWindowSize < 0 {
		return nil, configErr("rolling_window_size", cfg.RollingWindowSize, "non-negative (0 disables rolling)")
	}

	cfg.GapSize = ScaleToBars(cfg.GapSize, freq)
	cfg.InitialTrainSize = ScaleToBars(cfg.InitialTrainSize, freq)
	cfg.NumBarsBetweenTraining = ScaleToBars(cfg.NumBarsBetweenTraining, freq)

	return &PredictionWindowManager{cfg: cfg}, nil
}

// Name implements Splitter
func (m *PredictionWindowManager) Name() string { return "prediction_window" }

// Config returns the rescaled configuration
func (m *PredictionWindowManager) Config() WindowConfig { return m.cfg }

// GapSize returns the gap in bars
func (m *PredictionWindowManager) GapSize() int { return m.cfg.GapSize }

// InitialTrainSize returns the first training window in bars
func (m *PredictionWindowManager) InitialTrainSize() int { return m.cfg.InitialTrainSize }

// NumBarsBetweenTraining returns the retraining step in bars
func (m *PredictionWindowManager) NumBarsBetweenTraining() int { return m.cfg.NumBarsBetweenTraining }

// NSplits always fails: the schedule length depends on how many distinct
// timestamps the data holds. Use CountSplits.
func (m *PredictionWindowManager) NSplits() (int, error) {
	return 0, ErrSplitCountUnknown
}

// CountSplits returns how many folds Split would yield for data without
// materialising any positions
func (m *PredictionWindowManager) CountSplits(data Dataset) (int, error) {
	bars, err := m.bars(data, nil)
	if err != nil {
		return 0, err
	}
	start := m.cfg.InitialTrainSize + m.cfg.GapSize
	if start >= bars.count() {
		return 0, nil
	}
	step := m.cfg.NumBarsBetweenTraining
	return (bars.count() - start + step - 1) / step, nil
}

// Split implements Splitter
func (m *PredictionWindowManager) Split(data Dataset, labels Labels) (*Folds, error) {
	bars, err := m.bars(data, labels)
	if err != nil {
		return nil, err
	}

	start := m.cfg.InitialTrainSize + m.cfg.GapSize
	return newFolds(m.Name(), func() (Split, bool) {
		if start >= bars.count() {
			return Split{}, false
		}
		trainEnd := start - m.cfg.GapSize
		trainFrom := 0
		if m.cfg.RollingWindowSize > 0 {
			trainFrom = max(0, trainEnd-m.cfg.RollingWindowSize)
		}
		testEnd := min(start+m.cfg.NumBarsBetweenTraining, bars.count())

		s := Split{
			Train: bars.rows(trainFrom, trainEnd),
			Test:  bars.rows(start, testEnd),
		}
		start += m.cfg.NumBarsBetweenTraining
		return s, true
	}), nil
}

func (m *PredictionWindowManager) bars(data Dataset, labels Labels) (barIndex, error) {
	if err := checkLabels(data, labels); err != nil {
		return barIndex{}, err
	}
	times, err := timeColumn(data, m.cfg.TimeColumn)
	if err != nil {
		return barIndex{}, err
	}
	if err := checkNonDecreasing(m.cfg.TimeColumn, times); err != nil {
		return barIndex{}, err
	}
	bars := newBarIndex(times)
	if m.cfg.InitialTrainSize > bars.count() {
		return barIndex{}, preconditionErr("initial window",
			"initial_train_size of %d bars exceeds the %d distinct %s values",
			m.cfg.InitialTrainSize, bars.count(), m.cfg.TimeColumn)
	}
	return bars, nil
}

// barIndex records the distinct timestamps of a non-decreasing column in
// first-occurrence order together with the first row carrying each one.
type barIndex struct {
	times    []time.Time
	firstRow []int // len(times)+1, last entry is the row count
}

func newBarIndex(column []time.Time) barIndex {
	var b barIndex
	for i, t := range column {
		if i == 0 || !t.Equal(column[i-1]) {
			b.times = append(b.times, t)
			b.firstRow = append(b.firstRow, i)
		}
	}
	b.firstRow = append(b.firstRow, len(column))
	return b
}

func (b barIndex) count() int { return len(b.times) }

// rows returns every row whose timestamp is one of the distinct bars [from, to).
// The column is non-decreasing, so the matching rows are contiguous.
func (b barIndex) rows(from, to int) Positions {
	if to <= from {
		return Positions{}
	}
	return Range(b.firstRow[from], b.firstRow[to])
}
