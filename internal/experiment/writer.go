package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/mlt/internal/persistence"
)

const dateLayout = "2006-01-02 15:04:05"

// Writer writes run artifacts under <outputDir>/<run id>/
type Writer struct {
	outputDir string
}

// NewWriter creates a new artifact writer
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// RunDir returns the artifact directory of a run
func (w *Writer) RunDir(runID string) string {
	return filepath.Join(w.outputDir, runID)
}

func (w *Writer) create(runID, name string) (*os.File, error) {
	dir := w.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return file, nil
}

// WriteAll writes folds.jsonl, cv_split.csv and report.md
func (w *Writer) WriteAll(result *RunResult) error {
	if err := w.WriteFolds(result.Run, result.Records()); err != nil {
		return err
	}
	if err := w.WriteSplits(result.Run.ID, result.Records()); err != nil {
		return err
	}
	return w.WriteReport(result)
}

// WriteFolds writes one fold record per line followed by the run record
func (w *Writer) WriteFolds(run persistence.RunRecord, folds []persistence.FoldRecord) error {
	file, err := w.create(run.ID, "folds.jsonl")
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, fold := range folds {
		if err := enc.Encode(fold); err != nil {
			return fmt.Errorf("failed to write fold %d: %w", fold.Index, err)
		}
	}
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// WriteSplits writes the date range and row count of every train and test set
func (w *Writer) WriteSplits(runID string, folds []persistence.FoldRecord) error {
	file, err := w.create(runID, "cv_split.csv")
	if err != nil {
		return err
	}
	defer file.Close()

	out := csv.NewWriter(file)
	if err := out.Write([]string{"fold", "set", "start", "end", "rows"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, f := range folds {
		fold := strconv.Itoa(f.Index)
		rows := [][]string{
			{fold, "train", formatDate(f.TrainStart), formatDate(f.TrainEnd), strconv.Itoa(f.TrainRows)},
			{fold, "test", formatDate(f.TestStart), formatDate(f.TestEnd), strconv.Itoa(f.TestRows)},
		}
		if err := out.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write fold %d: %w", f.Index, err)
		}
	}
	out.Flush()
	return out.Error()
}

// WriteReport writes a markdown summary of the run
func (w *Writer) WriteReport(result *RunResult) error {
	file, err := w.create(result.Run.ID, "report.md")
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteString(generateMarkdownReport(result)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func generateMarkdownReport(result *RunResult) string {
	var report strings.Builder
	run := result.Run

	report.WriteString(fmt.Sprintf("# Experiment Report: %s\n\n", run.Name))
	report.WriteString(fmt.Sprintf("**Run**: %s\n", run.ID))
	report.WriteString(fmt.Sprintf("**Splitter**: %s\n", run.Splitter))
	report.WriteString(fmt.Sprintf("**Status**: %s\n", run.Status))
	report.WriteString(fmt.Sprintf("**Started**: %s\n", run.StartedAt.UTC().Format(dateLayout)))
	if run.FinishedAt != nil {
		report.WriteString(fmt.Sprintf("**Elapsed**: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	}
	if run.Error != "" {
		report.WriteString(fmt.Sprintf("**Error**: %s\n", run.Error))
	}
	report.WriteString("\n")

	report.WriteString("## Summary\n\n")
	var purged, embargoed, train, test int
	for _, f := range result.Folds {
		purged += f.Record.Purged
		embargoed += f.Record.Embargoed
		train += f.Record.TrainRows
		test += f.Record.TestRows
	}
	report.WriteString(fmt.Sprintf("- **Folds**: %d\n", len(result.Folds)))
	if n := len(result.Folds); n > 0 {
		report.WriteString(fmt.Sprintf("- **Mean train rows**: %.1f\n", float64(train)/float64(n)))
		report.WriteString(fmt.Sprintf("- **Mean test rows**: %.1f\n", float64(test)/float64(n)))
	}
	report.WriteString(fmt.Sprintf("- **Purged rows**: %d\n", purged))
	report.WriteString(fmt.Sprintf("- **Embargoed rows**: %d\n\n", embargoed))

	report.WriteString("## Folds\n\n")
	if len(result.Folds) == 0 {
		report.WriteString("No folds were processed.\n")
		return report.String()
	}
	report.WriteString("| Fold | Train | Test | Train rows | Test rows | Purged | Embargoed | Inner |\n")
	report.WriteString("|-----:|-------|------|-----------:|----------:|-------:|----------:|------:|\n")
	for _, f := range result.Folds {
		r := f.Record
		report.WriteString(fmt.Sprintf("| %d | %s to %s | %s to %s | %d | %d | %d | %d | %d |\n",
			r.Index,
			formatDate(r.TrainStart), formatDate(r.TrainEnd),
			formatDate(r.TestStart), formatDate(r.TestEnd),
			r.TrainRows, r.TestRows, r.Purged, r.Embargoed, r.InnerSplits))
	}
	return report.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
