package cv

import (
	"sort"
	"time"
)

// positionBounds partitions [0, n) into k contiguous groups whose sizes differ
// by at most one, the first n%k groups taking the extra row. bounds[j] is the
// first position of group j.
func positionBounds(n, k int) []int {
	q, r := n/k, n%k
	bounds := make([]int, k)
	for j := range bounds {
		bounds[j] = j*q + min(j, r)
	}
	return bounds
}

// timeBounds splits the prediction-time span into k equal durations and
// returns, for each interval start, the first row predicted at or after it.
// predTimes must be non-decreasing.
func timeBounds(predTimes []time.Time, k int) []int {
	bounds := make([]int, k)
	if len(predTimes) == 0 {
		return bounds
	}
	first, last := predTimes[0], predTimes[0]
	for _, t := range predTimes[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	span := last.Sub(first) / time.Duration(k)
	for j := range bounds {
		start := predTimes[0].Add(span * time.Duration(j))
		bounds[j] = searchTime(predTimes, start)
	}
	return bounds
}

// searchTime returns the first index whose time is >= t (searchsorted, side=left)
func searchTime(times []time.Time, t time.Time) int {
	return sort.Search(len(times), func(i int) bool { return !times[i].Before(t) })
}

func foldBounds(n, k int, byTime bool, predTimes []time.Time) []int {
	if byTime {
		return timeBounds(predTimes, k)
	}
	return positionBounds(n, k)
}
