package cv

import (
	"fmt"
	"strings"
)

// Frequency is a retraining cadence
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// barsPerPeriod maps a cadence to the trading bars one period spans
var barsPerPeriod = map[Frequency]int{
	Daily:   1,
	Weekly:  5,
	Monthly: 22,
}

// Frequencies lists the supported cadences in ascending period length
func Frequencies() []Frequency {
	return []Frequency{Daily, Weekly, Monthly}
}

// ParseFrequency accepts a cadence name, case-insensitively
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := barsPerPeriod[f]; !ok {
		return "", configErr("training_frequency", fmt.Sprintf("%q", s), fmt.Sprintf("one of %v", Frequencies()))
	}
	return f, nil
}

// BarsPerPeriod returns the divisor for f, 0 when f is unsupported
func (f Frequency) BarsPerPeriod() int { return barsPerPeriod[f] }

// ScaleToBars converts a day-denominated size into distinct bars at cadence f,
// rounding up
func ScaleToBars(n int, f Frequency) int {
	d := f.BarsPerPeriod()
	if d <= 0 {
		return n
	}
	if n <= 0 {
		return n / d
	}
	return (n + d - 1) / d
}
