package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "quotes-aggregator", cfg.App.Name)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)

	assert.Equal(t, DefaultRetryMaxAttempts, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.Client.Retry.MaxInterval)
	assert.Equal(t, DefaultCircuitMaxFailures, cfg.Client.CircuitBreaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Client.CircuitBreaker.Timeout)

	assert.Equal(t, "localhost:6379", cfg.Cache.Address)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Idempotency)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Quote)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Aggregate)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "primary", cfg.Sources[0].Name)
	assert.Equal(t, 1, cfg.Sources[0].Priority)
	assert.Equal(t, "secondary", cfg.Sources[1].Name)
	assert.Equal(t, 2, cfg.Sources[1].Priority)
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_CACHE_ADDRESS", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
}

func TestLoad_ProfileFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))

	profile := []byte("server:\n  port: 9999\nlog:\n  level: warn\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "qa.yaml"), profile, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("qa")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	// Untouched keys keep their defaults
	assert.Equal(t, "quotes-aggregator", cfg.App.Name)
}

func TestLoad_MissingProfileFileIsNotAnError(t *testing.T) {
	_, err := Load("nonexistent")
	assert.NoError(t, err)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "staging" },
			wantErr: "app.environment must be one of",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be at most 65535",
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app.name is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level must be one of",
		},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources = nil },
			wantErr: "sources is required",
		},
		{
			name:    "bad source url",
			mutate:  func(c *Config) { c.Sources[0].URL = "not a url" },
			wantErr: "must be a valid URL",
		},
		{
			name: "duplicate source names",
			mutate: func(c *Config) {
				c.Sources[1].Name = c.Sources[0].Name
			},
			wantErr: "duplicate name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatFieldPath(t *testing.T) {
	assert.Equal(t, "server.port", formatFieldPath("Config.Server.Port"))
	assert.Equal(t, "app.name", formatFieldPath("Config.App.Name"))
}
