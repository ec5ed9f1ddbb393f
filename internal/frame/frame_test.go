package frame

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/mlt/internal/cv"
)

const sampleCSV = `prediction_time,evaluation_time,feature,target
2024-01-02T00:00:00Z,2024-01-03T00:00:00Z,1.5,0.1
2024-01-03T00:00:00Z,2024-01-04T00:00:00Z,,0.2
2024-01-04T00:00:00Z,2024-01-05T00:00:00Z,2.5,-0.3
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "data.csv", sampleCSV)

	f, err := Load(path, Options{TimeColumns: []string{"prediction_time", "evaluation_time"}})
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"prediction_time", "evaluation_time", "feature", "target"}, f.Columns())

	pred, err := f.TimeColumn("prediction_time")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), pred[1])

	feature, err := f.FloatColumn("feature")
	require.NoError(t, err)
	assert.Equal(t, 1.5, feature.Values[0])
	assert.True(t, math.IsNaN(feature.Values[1]))

	target, err := f.FloatColumn("target")
	require.NoError(t, err)
	assert.Equal(t, 3, target.Len())
}

func TestLoadCSVUnixLayout(t *testing.T) {
	path := writeFile(t, "unix.csv", "ts,y\n1704153600,1\n1704240000,2\n")

	f, err := LoadCSV(path, Options{TimeColumns: []string{"ts"}, TimeLayout: UnixLayout})
	require.NoError(t, err)

	ts, err := f.TimeColumn("ts")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts[0])
	assert.Equal(t, 24*time.Hour, ts[1].Sub(ts[0]))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		opts Options
		want string
	}{
		{"missing_time_column", "a,b\n1,2\n", Options{TimeColumns: []string{"ts"}}, "column not found"},
		{"bad_timestamp", "ts\nyesterday\n", Options{TimeColumns: []string{"ts"}}, "row 2"},
		{"empty_timestamp", "ts,y\n,1\n", Options{TimeColumns: []string{"ts"}}, "empty timestamp"},
		{"bad_float", "y\nabc\n", Options{}, `column "y"`},
		{"duplicate_header", "y,y\n1,2\n", Options{}, "duplicate column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(writeFile(t, "bad.csv", tt.body), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load("data.parquet", Options{})
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]interface{}{"date", "close"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]interface{}{"2024-01-02", 10.5}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]interface{}{"2024-01-03"}))

	path := filepath.Join(t.TempDir(), "prices.xlsx")
	require.NoError(t, book.SaveAs(path))
	require.NoError(t, book.Close())

	f, err := Load(path, Options{TimeColumns: []string{"date"}, TimeLayout: time.DateOnly})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	closes, err := f.FloatColumn("close")
	require.NoError(t, err)
	assert.Equal(t, 10.5, closes.Values[0])
	assert.True(t, math.IsNaN(closes.Values[1]), "trailing blank cell is padded")
}

func TestTakeAndSpan(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f := New(4)
	require.NoError(t, f.AddTimeColumn("ts", []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour), base.Add(3 * time.Hour)}))
	require.NoError(t, f.AddFloatColumn("y", []float64{0, 1, 2, 3}))

	assert.Error(t, f.AddFloatColumn("short", []float64{1}))
	assert.Error(t, f.AddFloatColumn("y", []float64{1, 2, 3, 4}))

	sub := f.Take(cv.Positions{1, 3})
	assert.Equal(t, 2, sub.Len())
	y, err := sub.FloatColumn("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, y.Values)

	ts, _ := f.TimeColumn("ts")
	from, to, ok := Span(ts, cv.Positions{2, 1, 3})
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), from)
	assert.Equal(t, base.Add(3*time.Hour), to)

	_, _, ok = Span(ts, nil)
	assert.False(t, ok)

	_, err = f.TimeColumn("y")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	labels, _ := f.FloatColumn("y")
	assert.Equal(t, []float64{2, 0}, labels.Take(cv.Positions{2, 0}).Values)
}
