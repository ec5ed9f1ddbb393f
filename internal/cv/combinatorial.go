package cv

import (
	"time"
)

// CombinatorialConfig configures a CombinatorialPurged splitter
type CombinatorialConfig struct {
	NSplits        int           `yaml:"n_splits" json:"n_splits"`
	NTestSplits    int           `yaml:"n_test_splits" json:"n_test_splits"`
	PredTimeColumn string        `yaml:"pred_time_column" json:"pred_time_column"`
	EvalTimeColumn string        `yaml:"eval_time_column" json:"eval_time_column"`
	Embargo        time.Duration `yaml:"embargo" json:"embargo"`
	SplitByTime    bool          `yaml:"split_by_time" json:"split_by_time"`
}

// CombinatorialPurged yields one split per choice of NTestSplits test
// partitions out of NSplits, training on every other partition. Training rows
// on either side of each contiguous test block are purged and embargoed, so
// unlike walk-forward the embargo removes rows here.
type CombinatorialPurged struct {
	cfg     CombinatorialConfig
	embargo EmbargoPolicy
}

var _ Splitter = (*CombinatorialPurged)(nil)

// NewCombinatorialPurged validates cfg and returns the splitter
func NewCombinatorialPurged(cfg CombinatorialConfig) (*CombinatorialPurged, error) {
	if cfg.NSplits <= 1 {
		return nil, configErr("n_splits", cfg.NSplits, "greater than 1")
	}
	if cfg.NTestSplits <= 0 || cfg.NTestSplits >= cfg.NSplits {
		return nil, configErr("n_test_splits", cfg.NTestSplits, "greater than 0 and less than n_splits")
	}
	if err := checkLeakageColumns(cfg.PredTimeColumn, cfg.EvalTimeColumn, cfg.Embargo); err != nil {
		return nil, err
	}
	return &CombinatorialPurged{cfg: cfg, embargo: EmbargoPolicy{Duration: cfg.Embargo}}, nil
}

// Name implements Splitter
func (c *CombinatorialPurged) Name() string { return "combinatorial_purged" }

// Config returns the configuration
func (c *CombinatorialPurged) Config() CombinatorialConfig { return c.cfg }

// NSplits implements Splitter: C(NSplits, NTestSplits)
func (c *CombinatorialPurged) NSplits() (int, error) {
	return binomial(c.cfg.NSplits, c.cfg.NTestSplits), nil
}

// Split implements Splitter. Combinations are visited in lexicographic order.
func (c *CombinatorialPurged) Split(data Dataset, labels Labels) (*Folds, error) {
	pred, eval, err := leakageTimes(data, labels, c.cfg.PredTimeColumn, c.cfg.EvalTimeColumn, c.cfg.NSplits)
	if err != nil {
		return nil, err
	}

	n, k := c.cfg.NSplits, c.cfg.NTestSplits
	all := Range(0, data.Len())
	bounds := foldBounds(data.Len(), n, c.cfg.SplitByTime, pred)
	group := func(g int) Positions {
		end := len(all)
		if g+1 < n {
			end = bounds[g+1]
		}
		return Range(bounds[g], end)
	}

	comb := make([]int, k)
	for i := range comb {
		comb[i] = i
	}
	exhausted := false

	return newFolds(c.Name(), func() (Split, bool) {
		if exhausted {
			return Split{}, false
		}
		s := c.fold(comb, n, all, group, pred, eval)
		exhausted = !nextCombination(comb, n)
		return s, true
	}), nil
}

func (c *CombinatorialPurged) fold(comb []int, n int, all Positions, group func(int) Positions, pred, eval []time.Time) Split {
	chosen := make([]bool, n)
	for _, g := range comb {
		chosen[g] = true
	}

	var testParts, trainParts []Positions
	for g := 0; g < n; g++ {
		if chosen[g] {
			testParts = append(testParts, group(g))
		} else {
			trainParts = append(trainParts, group(g))
		}
	}
	s := Split{Test: Concat(testParts...), Train: Concat(trainParts...)}

	// purge around each run of adjacent test partitions
	for g := 0; g < n; {
		if !chosen[g] {
			g++
			continue
		}
		block := group(g)
		for g++; g < n && chosen[g]; g++ {
			block = Concat(block, group(g))
		}
		start, ok := block.Min()
		if !ok {
			continue
		}
		end, _ := block.Max()

		var purged, embargoed int
		s.Train, purged, embargoed = c.embargo.guard(all, s.Train, s.Test, start, end, pred, eval)
		s.Purged += purged
		s.Embargoed += embargoed
	}
	return s
}

// nextCombination advances comb to the next k-subset of [0, n) in
// lexicographic order, false when comb was the last one
func nextCombination(comb []int, n int) bool {
	k := len(comb)
	i := k - 1
	for i >= 0 && comb[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	comb[i]++
	for j := i + 1; j < k; j++ {
		comb[j] = comb[j-1] + 1
	}
	return true
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	out := 1
	for i := 1; i <= k; i++ {
		out = out * (n - k + i) / i
	}
	return out
}
