package cv

import (
	"time"
)

// Purge removes training rows whose evaluation interval overlaps the test
// fold [testFoldStart, testFoldEnd]. all must be Range(0, len(predTimes)).
//
// A row survives when its outcome was known before the first test
// prediction, or when it sits after the fold and is predicted no earlier
// than the fold's last outcome resolves.
func Purge(all, train Positions, testFoldStart, testFoldEnd int, predTimes, evalTimes []time.Time) Positions {
	foldStart := predTimes[testFoldStart]
	before := Intersect(train, Where(all, func(pos int) bool {
		return evalTimes[pos].Before(foldStart)
	}))

	if testFoldEnd > len(all) {
		testFoldEnd = len(all)
	}
	after := Intersect(train, all[testFoldEnd:])
	if testFoldEnd < len(all) {
		resolved := evalTimes[testFoldEnd]
		after = Intersect(after, Where(all, func(pos int) bool {
			return !predTimes[pos].Before(resolved)
		}))
	}
	return Union(before, after)
}

// Embargo additionally drops training rows that follow the test fold until
// embargo has elapsed past the fold's last outcome. Rows at or beyond the
// first prediction made after that horizon are kept. An empty test fold is a
// no-op, as is a horizon that reaches past the end of the data.
func Embargo(all, train, test Positions, testFoldEnd int, predTimes, evalTimes []time.Time, embargo time.Duration) Positions {
	last, ok := Where(test, func(pos int) bool { return pos <= testFoldEnd }).Max()
	if !ok {
		return train
	}

	horizon := evalTimes[last].Add(embargo)
	minTrainIndex := 0
	for _, t := range predTimes {
		if !t.After(horizon) {
			minTrainIndex++
		}
	}
	if minTrainIndex >= len(all) {
		return train
	}

	if testFoldEnd > len(all) {
		testFoldEnd = len(all)
	}
	allowed := Union(all[:testFoldEnd], all[minTrainIndex:])
	return Intersect(train, allowed)
}

// EmbargoPolicy carries the configured embargo horizon. The zero value disables embargo.
type EmbargoPolicy struct {
	Duration time.Duration
}

// Enabled reports whether the policy removes anything
func (p EmbargoPolicy) Enabled() bool { return p.Duration > 0 }

// Apply runs Embargo when the policy is enabled
func (p EmbargoPolicy) Apply(all, train, test Positions, testFoldEnd int, predTimes, evalTimes []time.Time) Positions {
	if !p.Enabled() {
		return train
	}
	return Embargo(all, train, test, testFoldEnd, predTimes, evalTimes, p.Duration)
}

// guard purges train against the contiguous test block [start, end] and then
// applies the embargo policy, returning the surviving rows and how many each
// step removed.
func (p EmbargoPolicy) guard(all, train, test Positions, start, end int, predTimes, evalTimes []time.Time) (Positions, int, int) {
	purged := Purge(all, train, start, end, predTimes, evalTimes)
	embargoed := p.Apply(all, purged, test, end, predTimes, evalTimes)
	return embargoed, len(train) - len(purged), len(purged) - len(embargoed)
}
