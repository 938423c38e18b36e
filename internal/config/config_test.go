package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageInMemory, cfg.Storage)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_FileWithPolicies(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE", "DATABASE_URL", "LOG_LEVEL", "SEED"} {
		t.Setenv(key, "")
	}
	path := writeConfig(t, `
port: "9090"
mockItems: 50
policies:
  likePost:
    failureRate: 0.5
    minDelay: 100ms
    maxDelay: 2s
    message: "Like failed"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 50, cfg.MockItems)
	assert.Equal(t, simulate.Policy{
		FailureRate: 0.5,
		MinDelay:    100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Message:     "Like failed",
	}, cfg.Policies["likePost"])
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"PORT":         "7000",
		"STORAGE":      "postgres",
		"DATABASE_URL": "postgres://localhost/db",
		"LOG_LEVEL":    "DEBUG",
		"SEED":         "42",
	}))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"postgres without dsn": func(c *Config) { c.Storage = StoragePostgres },
		"unknown storage":      func(c *Config) { c.Storage = "redis" },
		"bad port":             func(c *Config) { c.Port = "http" },
		"rate above one":       func(c *Config) { c.Policies["x"] = simulate.Policy{FailureRate: 1.5} },
		"inverted delays": func(c *Config) {
			c.Policies["x"] = simulate.Policy{MinDelay: time.Second, MaxDelay: time.Millisecond}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Logger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	cfg.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
