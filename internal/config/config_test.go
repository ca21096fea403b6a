package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "HOST", "LOG_LEVEL", "LOG_DEV",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_ENABLED",
	"FD_TEMP_DIR", "FD_YIELD_PAUSE", "FD_SHARES_FILE",
}

// clearEnv unsets every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Filesystem config
	assert.Equal(t, filepath.Join(os.TempDir(), "filedeck"), cfg.Filesystem.TempDir)
	assert.Equal(t, 10*time.Millisecond, cfg.Filesystem.YieldPause)
	assert.Empty(t, cfg.Filesystem.SharesFile)
}

func TestLoadMatchesDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "0.0.0.0",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
		"FD_TEMP_DIR":        "/var/tmp/fd",
		"FD_YIELD_PAUSE":     "0s",
		"FD_SHARES_FILE":     "/etc/filedeck/shares.yaml",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "/var/tmp/fd", cfg.Filesystem.TempDir)
	assert.Zero(t, cfg.Filesystem.YieldPause)
	assert.Equal(t, "/etc/filedeck/shares.yaml", cfg.Filesystem.SharesFile)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric rps", key: "RATE_LIMIT_RPS", value: "fast"},
		{name: "bad duration", key: "FD_YIELD_PAUSE", value: "soon"},
		{name: "negative pause", key: "FD_YIELD_PAUSE", value: "-5ms"},
		{name: "port out of range", key: "PORT", value: "70000"},
		{name: "zero burst", key: "RATE_LIMIT_BURST", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = "http"
	cfg.Filesystem.YieldPause = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "FD_YIELD_PAUSE")

	cfg = Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Burst = 0
	assert.NoError(t, cfg.Validate(), "limits are ignored while disabled")
}

func TestAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:8090", cfg.Addr())

	cfg.Server.Host = "::1"
	assert.Equal(t, "[::1]:8090", cfg.Addr())
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		dev       string
		wantLevel string
		wantDev   bool
	}{
		{name: "default values", wantLevel: "info"},
		{name: "debug level", level: "debug", wantLevel: "debug"},
		{name: "development mode", dev: "true", wantLevel: "info", wantDev: true},
		{name: "error level production", level: "error", dev: "false", wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.level != "" {
				t.Setenv("LOG_LEVEL", tt.level)
			}
			if tt.dev != "" {
				t.Setenv("LOG_DEV", tt.dev)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantLevel, cfg.Logging.Level)
			assert.Equal(t, tt.wantDev, cfg.Logging.Development)
		})
	}
}

func TestLoadSharesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shares.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`shares:
  - name: team
    server: nas
    share: public
    mount_path: /mnt/nas/public
  - server: backup
    share: data
    mount_path: /mnt/backup
`), 0o644))

	shares, err := LoadShares(path)
	require.NoError(t, err)
	assert.Equal(t, []ShareConfig{
		{Name: "team", Server: "nas", Share: "public", MountPath: "/mnt/nas/public"},
		{Server: "backup", Share: "data", MountPath: "/mnt/backup"},
	}, shares)
}

func TestLoadSharesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shares.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[[shares]]
name = "team"
server = "nas"
share = "public"
mount_path = "/mnt/nas/public"
`), 0o644))

	shares, err := LoadShares(path)
	require.NoError(t, err)
	assert.Equal(t, []ShareConfig{{Name: "team", Server: "nas", Share: "public", MountPath: "/mnt/nas/public"}}, shares)
}

func TestLoadSharesErrors(t *testing.T) {
	dir := t.TempDir()

	shares, err := LoadShares("")
	assert.NoError(t, err)
	assert.Empty(t, shares)

	_, err = LoadShares(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "shares.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o644))
	_, err = LoadShares(ini)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "shares.yml")
	require.NoError(t, os.WriteFile(incomplete, []byte("shares:\n  - name: x\n    server: nas\n"), 0o644))
	_, err = LoadShares(incomplete)
	assert.Error(t, err)
}
