package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mlt/internal/persistence"
	"github.com/sawpanic/mlt/internal/persistence/postgres"
)

// Config holds database connection configuration
type Config struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn" validate:"required_if=Enabled true"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	Migrate         bool          `yaml:"migrate"` // apply the schema on connect
}

// DefaultConfig returns reasonable defaults for database connections
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
		Enabled:         false, // requires explicit configuration
		Migrate:         true,
	}
}

// Manager owns the connection pool and the repositories built on it
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
	health *healthChecker
}

// NewManager opens and pings the database when enabled. A disabled manager
// has no repositories and always reports healthy.
func NewManager(config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{
			config: config,
			health: &healthChecker{enabled: false},
		}, nil
	}

	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := NewManagerWithDB(ctx, db, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// NewManagerWithDB wraps an already open connection
func NewManagerWithDB(ctx context.Context, db *sqlx.DB, config Config) (*Manager, error) {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultConfig().QueryTimeout
	}
	config.Enabled = true

	if config.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		log.Info().Msg("Database schema up to date")
	}

	return &Manager{
		db:     db,
		config: config,
		repos: &persistence.Repository{
			Runs: postgres.NewRunRepo(db, config.QueryTimeout),
		},
		health: &healthChecker{
			enabled: true,
			db:      db,
			timeout: config.QueryTimeout,
		},
	}, nil
}

// Repository returns the repository collection, or nil if database is disabled
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

// Health returns the health checker
func (m *Manager) Health() persistence.RepositoryHealth {
	return m.health
}

// DB returns the underlying connection
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// IsEnabled returns whether database persistence is enabled
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled && m.db != nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// healthChecker implements persistence.RepositoryHealth
type healthChecker struct {
	enabled bool
	db      *sqlx.DB
	timeout time.Duration
}

// Health returns current repository health status
func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	if !h.enabled {
		return persistence.HealthCheck{
			Healthy:        true,
			Errors:         []string{"database persistence disabled"},
			ConnectionPool: map[string]int{"status": 0},
			LastCheck:      time.Now(),
		}
	}

	start := time.Now()
	var errs []string
	if err := h.Ping(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("ping failed: %v", err))
	}

	stats := h.db.Stats()
	return persistence.HealthCheck{
		Healthy: len(errs) == 0,
		Errors:  errs,
		ConnectionPool: map[string]int{
			"max_open":   stats.MaxOpenConnections,
			"open":       stats.OpenConnections,
			"in_use":     stats.InUse,
			"idle":       stats.Idle,
			"wait_count": int(stats.WaitCount),
		},
		LastCheck:      time.Now(),
		ResponseTimeMS: time.Since(start).Milliseconds(),
	}
}

// Ping tests basic connectivity to the database
func (h *healthChecker) Ping(ctx context.Context) error {
	if !h.enabled {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return h.db.PingContext(pingCtx)
}
