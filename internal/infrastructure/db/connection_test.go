package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/infrastructure/db"
)

func TestDefaultConfig(t *testing.T) {
	config := db.DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, config.ConnMaxIdleTime)
	assert.False(t, config.Enabled)
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := db.NewManager(db.Config{Enabled: false})
	require.NoError(t, err)

	assert.NotNil(t, manager)
	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.DB())

	health := manager.Health()
	check := health.Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Contains(t, check.Errors[0], "disabled")
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := db.NewManager(db.Config{Enabled: true, DSN: ""})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestHealthChecker_DisabledPing(t *testing.T) {
	manager, err := db.NewManager(db.Config{Enabled: false})
	require.NoError(t, err)

	health := manager.Health()
	assert.NoError(t, health.Ping(context.Background()))

	stats := health.Stats(context.Background())
	assert.Equal(t, false, stats["enabled"])
}
