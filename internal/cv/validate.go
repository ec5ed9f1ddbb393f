package cv

import (
	"time"
)

const tsLayout = time.RFC3339

// checkNonDecreasing reports the first row whose timestamp precedes its predecessor.
// Equal timestamps are allowed (several entities per bar).
func checkNonDecreasing(column string, times []time.Time) error {
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return preconditionErr("monotonic "+column,
				"%s must be non-decreasing, row %d (%s) precedes row %d (%s)",
				column, i, times[i].Format(tsLayout), i-1, times[i-1].Format(tsLayout))
		}
	}
	return nil
}

func checkLabels(data Dataset, labels Labels) error {
	if labels == nil {
		return nil
	}
	if labels.Len() != data.Len() {
		return preconditionErr("labels", "labels have %d rows, data has %d", labels.Len(), data.Len())
	}
	return nil
}

func timeColumn(data Dataset, name string) ([]time.Time, error) {
	times, err := data.TimeColumn(name)
	if err != nil {
		return nil, preconditionErr("column "+name, "%v", err)
	}
	if len(times) != data.Len() {
		return nil, preconditionErr("column "+name, "has %d values for %d rows", len(times), data.Len())
	}
	return times, nil
}

// leakageTimes loads and validates the prediction/evaluation column pair
// used by the purging splitters.
func leakageTimes(data Dataset, labels Labels, predCol, evalCol string, minRows int) (pred, eval []time.Time, err error) {
	if err := checkLabels(data, labels); err != nil {
		return nil, nil, err
	}
	if pred, err = timeColumn(data, predCol); err != nil {
		return nil, nil, err
	}
	if err := checkNonDecreasing(predCol, pred); err != nil {
		return nil, nil, err
	}
	if eval, err = timeColumn(data, evalCol); err != nil {
		return nil, nil, err
	}
	for i := range pred {
		if eval[i].Before(pred[i]) {
			return nil, nil, preconditionErr("evaluation order",
				"row %d resolves at %s before its prediction time %s",
				i, eval[i].Format(tsLayout), pred[i].Format(tsLayout))
		}
	}
	if data.Len() < minRows {
		return nil, nil, preconditionErr("rows", "need at least %d rows, got %d", minRows, data.Len())
	}
	return pred, eval, nil
}
