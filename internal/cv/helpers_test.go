package cv

import (
	"fmt"
	"time"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// table is a minimal Dataset backed by named time columns
type table struct {
	n    int
	cols map[string][]time.Time
}

func (t table) Len() int { return t.n }

func (t table) TimeColumn(name string) ([]time.Time, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	return c, nil
}

type labelCount int

func (l labelCount) Len() int { return int(l) }

func hours(vals ...int) []time.Time {
	out := make([]time.Time, len(vals))
	for i, v := range vals {
		out[i] = t0.Add(time.Duration(v) * time.Hour)
	}
	return out
}

// hourly returns n rows predicted one hour apart whose outcomes resolve lag later
func hourly(n int, lag time.Duration) table {
	pred := make([]time.Time, n)
	eval := make([]time.Time, n)
	for i := range pred {
		pred[i] = t0.Add(time.Duration(i) * time.Hour)
		eval[i] = pred[i].Add(lag)
	}
	return table{n: n, cols: map[string][]time.Time{
		"prediction_time": pred,
		"evaluation_time": eval,
	}}
}

func walkForwardCfg(n, test, minTrain, maxTrain int) PurgedWalkForwardConfig {
	cfg := DefaultPurgedWalkForwardConfig()
	cfg.NSplits = n
	cfg.NTestSplits = test
	cfg.MinTrainSplits = minTrain
	cfg.MaxTrainSplits = maxTrain
	return cfg
}
