package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/sawpanic/mlt/internal/cv"
)

// ErrColumnNotFound is returned when a named column does not exist or has a different type
var ErrColumnNotFound = errors.New("column not found")

// Frame is an immutable-by-convention columnar table. Every column holds
// exactly Len() values; rows are addressed by position.
type Frame struct {
	n      int
	order  []string
	times  map[string][]time.Time
	floats map[string][]float64
}

var _ cv.Dataset = (*Frame)(nil)

// New creates an empty frame of n rows
func New(n int) *Frame {
	return &Frame{
		n:      n,
		times:  make(map[string][]time.Time),
		floats: make(map[string][]float64),
	}
}

// AddTimeColumn attaches a timestamp column
func (f *Frame) AddTimeColumn(name string, values []time.Time) error {
	if err := f.checkNew(name, len(values)); err != nil {
		return err
	}
	f.times[name] = values
	f.order = append(f.order, name)
	return nil
}

// AddFloatColumn attaches a numeric column
func (f *Frame) AddFloatColumn(name string, values []float64) error {
	if err := f.checkNew(name, len(values)); err != nil {
		return err
	}
	f.floats[name] = values
	f.order = append(f.order, name)
	return nil
}

func (f *Frame) checkNew(name string, n int) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if f.has(name) {
		return fmt.Errorf("duplicate column %q", name)
	}
	if n != f.n {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, n, f.n)
	}
	return nil
}

func (f *Frame) has(name string) bool {
	_, isTime := f.times[name]
	_, isFloat := f.floats[name]
	return isTime || isFloat
}

// Len implements cv.Dataset
func (f *Frame) Len() int { return f.n }

// Columns returns column names in insertion order
func (f *Frame) Columns() []string {
	return append([]string(nil), f.order...)
}

// TimeColumn implements cv.Dataset
func (f *Frame) TimeColumn(name string) ([]time.Time, error) {
	values, ok := f.times[name]
	if !ok {
		return nil, fmt.Errorf("time column %q: %w", name, ErrColumnNotFound)
	}
	return values, nil
}

// FloatColumn returns a numeric column, usable as cv.Labels
func (f *Frame) FloatColumn(name string) (Column, error) {
	values, ok := f.floats[name]
	if !ok {
		return Column{}, fmt.Errorf("float column %q: %w", name, ErrColumnNotFound)
	}
	return Column{Name: name, Values: values}, nil
}

// Take returns a new frame holding the rows at positions, in that order.
// Positions must be within [0, Len()).
func (f *Frame) Take(positions cv.Positions) *Frame {
	out := New(len(positions))
	for _, name := range f.order {
		if src, ok := f.times[name]; ok {
			dst := make([]time.Time, len(positions))
			for i, p := range positions {
				dst[i] = src[p]
			}
			out.times[name] = dst
		} else {
			dst := make([]float64, len(positions))
			for i, p := range positions {
				dst[i] = f.floats[name][p]
			}
			out.floats[name] = dst
		}
		out.order = append(out.order, name)
	}
	return out
}

// Span returns the earliest and latest values of a time column over
// positions, ok false when positions is empty
func Span(times []time.Time, positions cv.Positions) (from, to time.Time, ok bool) {
	for i, p := range positions {
		t := times[p]
		if i == 0 || t.Before(from) {
			from = t
		}
		if i == 0 || t.After(to) {
			to = t
		}
	}
	return from, to, len(positions) > 0
}

// Column is a named numeric column
type Column struct {
	Name   string
	Values []float64
}

var _ cv.Labels = Column{}

// Len implements cv.Labels
func (c Column) Len() int { return len(c.Values) }

// Take selects values at positions
func (c Column) Take(positions cv.Positions) Column {
	out := Column{Name: c.Name, Values: make([]float64, len(positions))}
	for i, p := range positions {
		out.Values[i] = c.Values[p]
	}
	return out
}
