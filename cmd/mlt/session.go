package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/mlt/internal/config"
	"github.com/sawpanic/mlt/internal/cv"
	"github.com/sawpanic/mlt/internal/experiment"
	"github.com/sawpanic/mlt/internal/frame"
	"github.com/sawpanic/mlt/internal/infrastructure/db"
	"github.com/sawpanic/mlt/internal/metrics"
)

// addConfigFlag registers the experiment config flag shared by all commands
func addConfigFlag(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "experiment.yaml", "Experiment config file")
}

// session is a loaded experiment: config, dataset and splitters
type session struct {
	cfg    *config.Config
	data   *frame.Frame
	labels cv.Labels
	outer  cv.Splitter
	inner  cv.Splitter
}

func openSession(cmd *cobra.Command) (*session, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// the config logging section applies unless the flags were given
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	if !flags.Changed("log-level") {
		level = cfg.Logging.Level
	}
	format, _ := flags.GetString("log-format")
	if !flags.Changed("log-format") {
		format = cfg.Logging.Format
	}
	if err := setupLogging(level, format); err != nil {
		return nil, err
	}

	data, err := frame.Load(cfg.Dataset.Path, cfg.Dataset.LoadOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	s := &session{cfg: cfg, data: data}

	if cfg.Dataset.LabelColumn != "" {
		col, err := data.FloatColumn(cfg.Dataset.LabelColumn)
		if err != nil {
			return nil, fmt.Errorf("failed to load labels: %w", err)
		}
		s.labels = col
	}

	if s.outer, err = cfg.Outer.Build(); err != nil {
		return nil, fmt.Errorf("outer: %w", err)
	}
	if cfg.Inner != nil {
		if s.inner, err = cfg.Inner.Build(); err != nil {
			return nil, fmt.Errorf("inner: %w", err)
		}
	}

	log.Info().
		Str("config", path).
		Str("dataset", cfg.Dataset.Path).
		Int("rows", data.Len()).
		Str("outer", s.outer.Name()).
		Bool("inner", s.inner != nil).
		Msg("Experiment loaded")

	return s, nil
}

// stores builds the record sinks: artifact files always, postgres when enabled
func (s *session) stores() (experiment.Store, *experiment.Writer, *db.Manager, error) {
	writer := experiment.NewWriter(s.cfg.Runner.OutputDir)
	manager, err := db.NewManager(s.cfg.Storage)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := experiment.MultiStore{experiment.NewFileStore(writer)}
	if manager.IsEnabled() {
		store = append(store, manager.Repository().Runs)
	}
	return store, writer, manager, nil
}

func (s *session) newRunner(store experiment.Store, reg *metrics.Registry) *experiment.Runner {
	r := experiment.NewRunner(experiment.Config{
		Name:       s.cfg.Name,
		Workers:    s.cfg.Runner.Workers,
		TimeColumn: s.cfg.Runner.TimeColumn,
	}, s.outer)
	if s.inner != nil {
		r.SetInner(s.inner)
	}
	r.SetStore(store)
	r.SetMetrics(reg)
	return r
}

// writeArtifacts writes the split table and report next to folds.jsonl
func writeArtifacts(w *experiment.Writer, result *experiment.RunResult) error {
	if err := w.WriteSplits(result.Run.ID, result.Records()); err != nil {
		return err
	}
	return w.WriteReport(result)
}
