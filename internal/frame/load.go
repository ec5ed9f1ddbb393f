package frame

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// UnixLayout parses time cells as integer seconds since the epoch
const UnixLayout = "unix"

// Options controls how records are decoded into columns
type Options struct {
	TimeColumns []string `yaml:"time_columns"`
	TimeLayout  string   `yaml:"time_layout"` // RFC3339 when empty
	Sheet       string   `yaml:"sheet"`       // xlsx only, first sheet when empty
}

func (o Options) layout() string {
	if o.TimeLayout == "" {
		return time.RFC3339
	}
	return o.TimeLayout
}

// Load reads a dataset, choosing the decoder from the file extension
func Load(path string, opts Options) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path, opts)
	case ".xlsx":
		return LoadXLSX(path, opts)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// LoadCSV reads a CSV file with a header row
func LoadCSV(path string, opts Options) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}

	f, err := decode(records, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("rows", f.Len()).Int("columns", len(f.order)).Msg("Loaded csv dataset")
	return f, nil
}

// LoadXLSX reads one worksheet of an Excel workbook with a header row
func LoadXLSX(path string, opts Options) (*Frame, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer book.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	f, err := decode(rows, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s[%s]: %w", path, sheet, err)
	}

	log.Info().Str("path", path).Str("sheet", sheet).Int("rows", f.Len()).Msg("Loaded xlsx dataset")
	return f, nil
}

// decode turns header + data records into a frame. Short rows are padded
// with empty cells since spreadsheets drop trailing blanks.
func decode(records [][]string, opts Options) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	header := records[0]
	body := records[1:]

	isTime := make(map[string]bool, len(opts.TimeColumns))
	for _, name := range opts.TimeColumns {
		isTime[name] = true
	}
	for name := range isTime {
		found := false
		for _, h := range header {
			if strings.TrimSpace(h) == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("time column %q: %w", name, ErrColumnNotFound)
		}
	}

	f := New(len(body))
	for col, raw := range header {
		name := strings.TrimSpace(raw)
		if isTime[name] {
			values := make([]time.Time, len(body))
			for row, record := range body {
				t, err := parseTime(cell(record, col), opts.layout())
				if err != nil {
					return nil, fmt.Errorf("row %d column %q: %w", row+2, name, err)
				}
				values[row] = t
			}
			if err := f.AddTimeColumn(name, values); err != nil {
				return nil, err
			}
			continue
		}

		values := make([]float64, len(body))
		for row, record := range body {
			v, err := parseFloat(cell(record, col))
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", row+2, name, err)
			}
			values[row] = v
		}
		if err := f.AddFloatColumn(name, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func cell(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func parseTime(s, layout string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if layout == UnixLayout {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid unix timestamp %q", s)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(layout, s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
