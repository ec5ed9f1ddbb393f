package cv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPurgeNoLagIsNoOp(t *testing.T) {
	data := hourly(30, 0)
	pred, eval := data.cols["prediction_time"], data.cols["evaluation_time"]

	train := Range(0, 10)
	got := Purge(Range(0, 30), train, 10, 19, pred, eval)
	assert.Equal(t, train, got)
}

func TestPurgeRemovesLateResolvingRow(t *testing.T) {
	data := hourly(30, 0)
	pred, eval := data.cols["prediction_time"], data.cols["evaluation_time"]
	eval[8] = t0.Add(15 * time.Hour)

	got := Purge(Range(0, 30), Range(0, 10), 10, 19, pred, eval)
	assert.NotContains(t, got, 8)
	assert.Equal(t, Positions{0, 1, 2, 3, 4, 5, 6, 7, 9}, got)
}

func TestPurgeKeepsRowsAfterResolution(t *testing.T) {
	// test fold [5, 9]; outcomes resolve 3h after prediction
	data := hourly(20, 3*time.Hour)
	pred, eval := data.cols["prediction_time"], data.cols["evaluation_time"]
	train := Concat(Range(0, 5), Range(10, 20))

	got := Purge(Range(0, 20), train, 5, 9, pred, eval)

	// before: eval < pred[5]=5h keeps rows 0,1; after: pred >= eval[9]=12h keeps 12..19
	assert.Equal(t, Concat(Range(0, 2), Range(12, 20)), got)
}

func TestEmbargo(t *testing.T) {
	data := hourly(20, 0)
	pred, eval := data.cols["prediction_time"], data.cols["evaluation_time"]
	all := Range(0, 20)
	train := Concat(Range(0, 5), Range(10, 20))
	test := Range(5, 10)

	tests := []struct {
		name    string
		embargo time.Duration
		test    Positions
		want    Positions
	}{
		{"three_hours", 3 * time.Hour, test, Concat(Range(0, 5), Range(13, 20))},
		{"zero_horizon", 0, test, Concat(Range(0, 5), Range(10, 20))},
		{"horizon_past_end", 100 * time.Hour, test, train},
		{"no_test_rows_before_fold_end", 3 * time.Hour, Positions{}, train},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Embargo(all, train, tt.test, 9, pred, eval, tt.embargo)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbargoPolicy(t *testing.T) {
	data := hourly(20, 0)
	pred, eval := data.cols["prediction_time"], data.cols["evaluation_time"]
	train := Concat(Range(0, 5), Range(10, 20))

	off := EmbargoPolicy{}
	assert.False(t, off.Enabled())
	assert.Equal(t, train, off.Apply(Range(0, 20), train, Range(5, 10), 9, pred, eval))

	on := EmbargoPolicy{Duration: 2 * time.Hour}
	kept, purged, embargoed := on.guard(Range(0, 20), train, Range(5, 10), 5, 9, pred, eval)
	assert.Equal(t, Concat(Range(0, 5), Range(12, 20)), kept)
	assert.Equal(t, 0, purged)
	assert.Equal(t, 2, embargoed)
}
