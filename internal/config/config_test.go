package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlt/internal/cv"
)

const experimentYAML = `
name: momentum_daily
dataset:
  path: data/momentum.csv
  time_columns: [prediction_time, evaluation_time]
  label_column: fwd_return
outer:
  kind: prediction_window
  window:
    gap_size: 5
    initial_train_size: 260
    num_bars_between_training: 20
    training_frequency: weekly
    time_column: prediction_time
inner:
  kind: purged_walk_forward
  walk_forward:
    n_splits: 5
    n_test_splits: 1
    min_train_splits: 2
    pred_time_column: prediction_time
    eval_time_column: evaluation_time
    embargo: 48h
cache:
  ttl: 10m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, experimentYAML))
	require.NoError(t, err)

	assert.Equal(t, "momentum_daily", cfg.Name)
	assert.Equal(t, "fwd_return", cfg.Dataset.LabelColumn)
	require.NotNil(t, cfg.Outer.Window)
	assert.Equal(t, cv.Weekly, cfg.Outer.Window.TrainingFrequency)
	require.NotNil(t, cfg.Inner)
	assert.Equal(t, 48*time.Hour, cfg.Inner.WalkForward.Embargo)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)

	// defaults for omitted runtime settings
	assert.Equal(t, 1, cfg.Runner.Workers)
	assert.Equal(t, "artifacts", cfg.Runner.OutputDir)
	assert.Equal(t, "prediction_time", cfg.Runner.TimeColumn)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Storage.QueryTimeout)

	outer, err := cfg.Outer.WindowManager()
	require.NoError(t, err)
	assert.Equal(t, 52, outer.InitialTrainSize())
	assert.Equal(t, 4, outer.NumBarsBetweenTraining())

	inner, err := cfg.Inner.Build()
	require.NoError(t, err)
	assert.Equal(t, "purged_walk_forward", inner.Name())
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("MLT_WORKERS", "4")
	t.Setenv("MLT_OUTPUT_DIR", "/tmp/mlt-out")
	t.Setenv("MLT_DATABASE_ENABLED", "true")
	t.Setenv("MLT_DATABASE_DSN", "postgres://mlt@localhost/mlt?sslmode=disable")
	t.Setenv("MLT_REDIS_ADDR", "localhost:6379")
	t.Setenv("MLT_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, experimentYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Runner.Workers)
	assert.Equal(t, "/tmp/mlt-out", cfg.Runner.OutputDir)
	assert.True(t, cfg.Storage.Enabled)
	assert.Contains(t, cfg.Storage.DSN, "localhost/mlt")
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(string) string
		want    string
		invalid bool // wraps cv.ErrInvalidConfig
	}{
		{
			name: "missing_name",
			edit: func(s string) string { return strings.Replace(s, "name: momentum_daily", "", 1) },
			want: "Name",
		},
		{
			name: "unknown_kind",
			edit: func(s string) string { return strings.Replace(s, "kind: prediction_window", "kind: kfold", 1) },
			want: "Kind",
		},
		{
			name:    "invalid_frequency",
			edit:    func(s string) string { return strings.Replace(s, "weekly", "hourly", 1) },
			want:    "training_frequency",
			invalid: true,
		},
		{
			name:    "invalid_inner_splits",
			edit:    func(s string) string { return strings.Replace(s, "n_splits: 5", "n_splits: 1", 1) },
			want:    "inner",
			invalid: true,
		},
		{
			name: "column_not_loaded",
			edit: func(s string) string {
				return strings.Replace(s, "time_columns: [prediction_time, evaluation_time]", "time_columns: [prediction_time]", 1)
			},
			want: `"evaluation_time" which is not in dataset.time_columns`,
		},
		{
			name: "missing_section",
			edit: func(s string) string {
				return strings.Replace(s, "  kind: purged_walk_forward", "  kind: combinatorial_purged", 1)
			},
			want: "requires a combinatorial section",
		},
		{
			name: "storage_without_dsn",
			edit: func(s string) string { return s + "storage:\n  enabled: true\n" },
			want: "DSN",
		},
		{
			name: "bad_yaml",
			edit: func(s string) string { return s + "outer: [unterminated\n" },
			want: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.edit(experimentYAML)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.invalid {
				assert.ErrorIs(t, err, cv.ErrInvalidConfig)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	outer, err := cfg.Outer.Build()
	require.NoError(t, err)
	assert.Equal(t, "prediction_window", outer.Name())

	require.NotNil(t, cfg.Inner)
	inner, err := cfg.Inner.Build()
	require.NoError(t, err)
	n, err := inner.NSplits()
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestSplitterConfig(t *testing.T) {
	combinatorial := SplitterConfig{
		Kind: KindCombinatorialPurged,
		Combinatorial: &cv.CombinatorialConfig{
			NSplits: 6, NTestSplits: 2,
			PredTimeColumn: "p", EvalTimeColumn: "e",
		},
	}
	s, err := combinatorial.Build()
	require.NoError(t, err)
	n, _ := s.NSplits()
	assert.Equal(t, 15, n)
	assert.Equal(t, []string{"p", "e"}, combinatorial.TimeColumns())

	_, err = combinatorial.WindowManager()
	assert.Error(t, err)

	_, err = SplitterConfig{Kind: "kfold"}.Build()
	assert.ErrorContains(t, err, "unknown splitter kind")

	wf := DefaultWalkForward()
	assert.NotEqual(t, wf.Fingerprint(), combinatorial.Fingerprint())
	assert.Equal(t, wf.Fingerprint(), DefaultWalkForward().Fingerprint())
}
