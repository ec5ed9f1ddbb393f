package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/mlt/internal/cv"
	"github.com/sawpanic/mlt/internal/frame"
	"github.com/sawpanic/mlt/internal/infrastructure/db"
)

// Config is one experiment: a dataset, an outer splitter (usually the
// prediction window schedule), an optional inner splitter applied to every
// outer training window, and the runtime around them.
type Config struct {
	Name    string          `yaml:"name" validate:"required"`
	Dataset DatasetConfig   `yaml:"dataset"`
	Outer   SplitterConfig  `yaml:"outer"`
	Inner   *SplitterConfig `yaml:"inner,omitempty"`
	Runner  RunnerConfig    `yaml:"runner"`
	Logging LoggingConfig   `yaml:"logging"`
	Storage db.Config       `yaml:"storage"`
	Cache   CacheConfig     `yaml:"cache"`
	Server  ServerConfig    `yaml:"server"`
}

// DatasetConfig locates and decodes the input table
type DatasetConfig struct {
	Path        string   `yaml:"path" validate:"required"`
	Sheet       string   `yaml:"sheet"`
	TimeColumns []string `yaml:"time_columns" validate:"required,min=1,dive,required"`
	TimeLayout  string   `yaml:"time_layout"`
	LabelColumn string   `yaml:"label_column"`
}

// LoadOptions converts the dataset section for frame.Load
func (d DatasetConfig) LoadOptions() frame.Options {
	return frame.Options{TimeColumns: d.TimeColumns, TimeLayout: d.TimeLayout, Sheet: d.Sheet}
}

// RunnerConfig controls the experiment runner
type RunnerConfig struct {
	Workers    int    `yaml:"workers" validate:"min=1"`
	OutputDir  string `yaml:"output_dir" validate:"required"`
	TimeColumn string `yaml:"time_column"` // fold date ranges, defaults to the first dataset time column
}

// LoggingConfig selects the zerolog level and output format
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto console json"`
}

// CacheConfig configures the fold schedule cache; an empty address keeps it in memory
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// ServerConfig configures the monitor server
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// envOverlay lists the settings that MLT_* environment variables override
type envOverlay struct {
	DatasetPath     string `envconfig:"DATASET_PATH"`
	OutputDir       string `envconfig:"OUTPUT_DIR"`
	Workers         int    `envconfig:"WORKERS"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	DatabaseEnabled *bool  `envconfig:"DATABASE_ENABLED"`
	DatabaseDSN     string `envconfig:"DATABASE_DSN"`
	RedisAddr       string `envconfig:"REDIS_ADDR"`
	ServerAddr      string `envconfig:"SERVER_ADDR"`
}

// Default returns a complete experiment: yearly initial window retrained
// monthly, with purged walk-forward CV inside each training window
func Default() *Config {
	inner := DefaultWalkForward()
	return &Config{
		Name: "walk_forward",
		Dataset: DatasetConfig{
			Path:        "data/dataset.csv",
			TimeColumns: []string{"prediction_time", "evaluation_time"},
			LabelColumn: "target",
		},
		Outer: SplitterConfig{
			Kind: KindPredictionWindow,
			Window: &cv.WindowConfig{
				GapSize:                1,
				InitialTrainSize:       252,
				NumBarsBetweenTraining: 22,
				TrainingFrequency:      cv.Daily,
				TimeColumn:             "prediction_time",
			},
		},
		Inner: &inner,
		Runner: RunnerConfig{
			Workers:   1,
			OutputDir: "artifacts",
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
		Storage: db.DefaultConfig(),
		Cache:   CacheConfig{TTL: time.Hour},
		Server:  ServerConfig{Addr: ":9090"},
	}
}

// Load reads a YAML experiment, applies defaults for omitted runtime
// settings, overlays MLT_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Runner.Workers == 0 {
		c.Runner.Workers = def.Runner.Workers
	}
	if c.Runner.OutputDir == "" {
		c.Runner.OutputDir = def.Runner.OutputDir
	}
	if c.Runner.TimeColumn == "" && len(c.Dataset.TimeColumns) > 0 {
		c.Runner.TimeColumn = c.Dataset.TimeColumns[0]
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}

	s := &c.Storage
	if s.MaxOpenConns == 0 {
		s.MaxOpenConns = def.Storage.MaxOpenConns
	}
	if s.MaxIdleConns == 0 {
		s.MaxIdleConns = def.Storage.MaxIdleConns
	}
	if s.ConnMaxLifetime == 0 {
		s.ConnMaxLifetime = def.Storage.ConnMaxLifetime
	}
	if s.ConnMaxIdleTime == 0 {
		s.ConnMaxIdleTime = def.Storage.ConnMaxIdleTime
	}
	if s.QueryTimeout == 0 {
		s.QueryTimeout = def.Storage.QueryTimeout
	}
}

func (c *Config) applyEnv() error {
	var env envOverlay
	if err := envconfig.Process("MLT", &env); err != nil {
		return err
	}

	if env.DatasetPath != "" {
		c.Dataset.Path = env.DatasetPath
	}
	if env.OutputDir != "" {
		c.Runner.OutputDir = env.OutputDir
	}
	if env.Workers != 0 {
		c.Runner.Workers = env.Workers
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.DatabaseEnabled != nil {
		c.Storage.Enabled = *env.DatabaseEnabled
	}
	if env.DatabaseDSN != "" {
		c.Storage.DSN = env.DatabaseDSN
	}
	if env.RedisAddr != "" {
		c.Cache.RedisAddr = env.RedisAddr
	}
	if env.ServerAddr != "" {
		c.Server.Addr = env.ServerAddr
	}
	return nil
}

var validate = validator.New()

// Validate checks struct tags, then builds every splitter so construction
// errors surface here, then checks that the columns they read are loaded
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be non-negative, got %s", c.Cache.TTL)
	}

	loaded := make(map[string]bool, len(c.Dataset.TimeColumns))
	for _, name := range c.Dataset.TimeColumns {
		loaded[name] = true
	}
	if c.Runner.TimeColumn != "" && !loaded[c.Runner.TimeColumn] {
		return fmt.Errorf("runner.time_column %q is not in dataset.time_columns", c.Runner.TimeColumn)
	}

	sections := map[string]*SplitterConfig{"outer": &c.Outer}
	if c.Inner != nil {
		sections["inner"] = c.Inner
	}
	for section, sc := range sections {
		if _, err := sc.Build(); err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		for _, name := range sc.TimeColumns() {
			if !loaded[name] {
				return fmt.Errorf("%s splitter reads %q which is not in dataset.time_columns", section, name)
			}
		}
	}
	return nil
}
