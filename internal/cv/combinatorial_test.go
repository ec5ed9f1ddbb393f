package cv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func combinatorialCfg(n, k int, embargo time.Duration) CombinatorialConfig {
	return CombinatorialConfig{
		NSplits:        n,
		NTestSplits:    k,
		PredTimeColumn: "prediction_time",
		EvalTimeColumn: "evaluation_time",
		Embargo:        embargo,
	}
}

func TestNewCombinatorialPurgedValidation(t *testing.T) {
	for _, cfg := range []CombinatorialConfig{
		combinatorialCfg(1, 1, 0),
		combinatorialCfg(6, 0, 0),
		combinatorialCfg(6, 6, 0),
		combinatorialCfg(6, 2, -time.Minute),
	} {
		_, err := NewCombinatorialPurged(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestCombinatorialPurgedCoversEveryCombination(t *testing.T) {
	splitter, err := NewCombinatorialPurged(combinatorialCfg(6, 2, 0))
	require.NoError(t, err)

	n, err := splitter.NSplits()
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	splits := mustCollect(t, splitter, hourly(60, 0))
	require.Len(t, splits, n)

	testCount := make(map[int]int)
	for _, s := range splits {
		assert.Len(t, s.Test, 20)
		assert.Len(t, s.Train, 40)
		assert.True(t, Disjoint(s.Train, s.Test))
		assert.Zero(t, s.Purged)
		for _, p := range s.Test {
			testCount[p]++
		}
	}
	// every row is tested in C(5,1) = 5 combinations
	require.Len(t, testCount, 60)
	for _, c := range testCount {
		assert.Equal(t, 5, c)
	}

	assert.Equal(t, Range(0, 20), splits[0].Test)
	assert.Equal(t, Concat(Range(40, 50), Range(50, 60)), splits[len(splits)-1].Test)
}

func TestCombinatorialPurgedEmbargo(t *testing.T) {
	splitter, err := NewCombinatorialPurged(combinatorialCfg(6, 2, 2*time.Hour))
	require.NoError(t, err)

	folds := mustFolds(t, splitter, hourly(60, 0))
	first, ok := folds.Next()
	require.True(t, ok)

	// test block [0, 19]; rows 20 and 21 fall inside the embargo horizon
	assert.Equal(t, Range(22, 60), first.Train)
	assert.Equal(t, 2, first.Embargoed)

	// groups {0, 2}: two blocks, each followed by two embargoed rows
	second, ok := folds.Next()
	require.True(t, ok)
	assert.Equal(t, Concat(Range(0, 10), Range(20, 30)), second.Test)
	assert.Equal(t, Concat(Range(12, 20), Range(32, 60)), second.Train)
	assert.Equal(t, 4, second.Embargoed)
}

func TestCombinatorialPurgedLag(t *testing.T) {
	splitter, err := NewCombinatorialPurged(combinatorialCfg(6, 1, 0))
	require.NoError(t, err)

	splits := mustCollect(t, splitter, hourly(60, 2*time.Hour))
	require.Len(t, splits, 6)

	// test group 2 = rows [20, 30): rows 18, 19 resolve inside it, row 30 overlaps its last outcome
	middle := splits[2]
	assert.Equal(t, Range(20, 30), middle.Test)
	assert.Equal(t, Concat(Range(0, 18), Range(31, 60)), middle.Train)
	assert.Equal(t, 3, middle.Purged)
}

func TestNextCombination(t *testing.T) {
	comb := []int{0, 1}
	var seen [][]int
	for {
		seen = append(seen, append([]int(nil), comb...))
		if !nextCombination(comb, 4) {
			break
		}
	}
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, seen)
	assert.Equal(t, 252, binomial(10, 5))
	assert.Equal(t, 0, binomial(3, 4))
}
