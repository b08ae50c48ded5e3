package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("ADMIN_API_KEYS", "k1")
	cfg := LoadEnv()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Undo.Window)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"k1"}, cfg.Auth.APIKeys)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_API_KEYS", " a , ,b ")
	t.Setenv("UNDO_WINDOW", "3s")
	t.Setenv("UNDO_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg := LoadEnv()
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	assert.Equal(t, 3*time.Second, cfg.Undo.Window)
	assert.Equal(t, 30*time.Second, cfg.Undo.SweepInterval, "unparsable values fall back")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestValidate(t *testing.T) {
	t.Setenv("ADMIN_API_KEYS", "")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("UNDO_WINDOW", "0s")

	err := LoadEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "ADMIN_API_KEYS")
	assert.Contains(t, err.Error(), "UNDO_WINDOW")
}
