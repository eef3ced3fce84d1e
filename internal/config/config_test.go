package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "data/pantheon.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, uint64(60), cfg.SweepEvery)
	assert.Equal(t, "@every 5m", cfg.SaveSchedule)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PANTHEON_API_PORT", "9090")
	t.Setenv("PANTHEON_LOG_LEVEL", "debug")
	t.Setenv("PANTHEON_TICK_INTERVAL", "250ms")
	t.Setenv("PANTHEON_COMMAND_RATE", "0.5")
	t.Setenv("PANTHEON_CORS_ORIGINS", "https://pantheon.example,https://admin.pantheon.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.InDelta(t, 0.5, cfg.CommandRate, 1e-9)
	assert.Equal(t, []string{"https://pantheon.example", "https://admin.pantheon.example"}, cfg.CORSOrigins)
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PANTHEON_ADMIN_KEY=s3cret\nPANTHEON_DB_PATH=/tmp/p.db\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PANTHEON_ADMIN_KEY")
		os.Unsetenv("PANTHEON_DB_PATH")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.AdminKey)
	assert.Equal(t, "/tmp/p.db", cfg.DBPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"PANTHEON_API_PORT":          "70000",
		"PANTHEON_LOG_LEVEL":         "loud",
		"PANTHEON_SWEEP_EVERY_TICKS": "0",
		"PANTHEON_COMMAND_BURST":     "abc",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
