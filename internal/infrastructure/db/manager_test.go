package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, config.ConnMaxIdleTime)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.False(t, config.Enabled)
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.DB())
	assert.NoError(t, manager.Close())

	health := manager.Health().Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Contains(t, health.Errors[0], "disabled")
	assert.NoError(t, manager.Health().Ping(context.Background()))
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestNewManagerWithDB(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS mlt_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	config := DefaultConfig()
	manager, err := NewManagerWithDB(context.Background(), sqlx.NewDb(mockDB, "postgres"), config)
	require.NoError(t, err)

	assert.True(t, manager.IsEnabled())
	require.NotNil(t, manager.Repository())
	assert.NotNil(t, manager.Repository().Runs)

	mock.ExpectPing()
	health := manager.Health().Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Empty(t, health.Errors)

	mock.ExpectPing().WillReturnError(errors.New("database unavailable"))
	health = manager.Health().Health(context.Background())
	assert.False(t, health.Healthy)
	assert.Contains(t, health.Errors[0], "database unavailable")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewManagerWithDB_MigrationFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnError(errors.New("permission denied"))

	_, err = NewManagerWithDB(context.Background(), sqlx.NewDb(mockDB, "postgres"), DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply schema")
}
