package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bus_routes", cfg.TableName)
	assert.Equal(t, 10, cfg.MaxAgencies)
	assert.Equal(t, 10*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShortWaitTimeout)
	assert.True(t, cfg.Headless)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("MAX_AGENCIES", "3")
	t.Setenv("SHORT_WAIT_TIMEOUT", "750ms")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, 3, cfg.MaxAgencies)
	assert.Equal(t, 750*time.Millisecond, cfg.ShortWaitTimeout)
	assert.False(t, cfg.Headless)
}

func TestLoadRejectsMalformedNumber(t *testing.T) {
	t.Setenv("MAX_SCROLL_PROBES", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "postgres",
		PostgresPassword: "secret",
		PostgresDB:       "redbus_db",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=redbus_db sslmode=disable",
		cfg.DSN())
}

func TestTargetYear(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2026, (&Config{}).TargetYear(now))
	assert.Equal(t, 2025, (&Config{ReachingDateYear: 2025}).TargetYear(now))
}
