package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func cleanEnv(t *testing.T) {
	for _, key := range []string{"TURSO_DATABASE_URL", "TURSO_AUTH_TOKEN", "DEV_MODE", "LAZARO_LOG_LEVEL"} {
		unsetenv(t, key)
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Timer.TickInterval())
	assert.Equal(t, 5, cfg.Timer.CountdownSeconds)
	assert.True(t, cfg.Timer.Audio)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Contains(t, cfg.DB.ConnectionString, "lazaro.db")
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
connection_string = "file:./gym.db"

[timer]
countdown_seconds = 10
audio = false

[metrics]
addr = "127.0.0.1:9091"
`), 0644))

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "file:./gym.db", cfg.DB.ConnectionString)
	assert.Equal(t, 10, cfg.Timer.CountdownSeconds)
	assert.Equal(t, 250, cfg.Timer.TickIntervalMS, "unset keys keep their default")
	assert.False(t, cfg.Timer.Audio)
	assert.Equal(t, "127.0.0.1:9091", cfg.Metrics.Addr)
}

func TestLoad_InvalidFile(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timer\n"), 0644))

	_, err := Load(path, noEnvFile(t))
	assert.Error(t, err)
}

func TestLoad_RejectsBadTimer(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timer]\ntick_interval_ms = 0\n"), 0644))

	_, err := Load(path, noEnvFile(t))
	assert.ErrorContains(t, err, "tick_interval_ms")
}

func TestLoad_EnvFile(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TURSO_DATABASE_URL=libsql://gym.turso.io\nTURSO_AUTH_TOKEN=secret\n"), 0644))

	cfg, err := Load(filepath.Join(dir, "config.toml"), envFile)
	require.NoError(t, err)

	assert.Equal(t, "libsql://gym.turso.io?authToken=secret", cfg.DB.ConnectionString)
}

func TestLoad_DevMode(t *testing.T) {
	cleanEnv(t)
	t.Setenv("TURSO_DATABASE_URL", "libsql://gym.turso.io")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LAZARO_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, devConnectionString, cfg.DB.ConnectionString)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestWrite_RoundTrip(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Timer.CountdownSeconds = 3
	cfg.Metrics.Addr = ":9100"

	require.NoError(t, cfg.Write(path))

	loaded, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
