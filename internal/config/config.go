package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Defaults shared by the envconfig tags and Default
const (
	defaultPort       = "8090"
	defaultHost       = "127.0.0.1"
	defaultLevel      = "info"
	defaultRPS        = 100
	defaultBurst      = 200
	defaultYieldPause = 10 * time.Millisecond
)

// Config is the process configuration, read from the environment
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Filesystem FilesystemConfig
}

// ServerConfig is the listen address
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig selects log level and output style
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig bounds requests per client IP
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// FilesystemConfig holds virtual filesystem settings
type FilesystemConfig struct {
	// TempDir receives extracted nested archives. Empty means a filedeck
	// directory under the OS temp dir.
	TempDir string `envconfig:"FD_TEMP_DIR"`
	// YieldPause is slept between items of bulk operations
	YieldPause time.Duration `envconfig:"FD_YIELD_PAUSE" default:"10ms"`
	// SharesFile lists SMB shares (.yaml, .yml or .toml)
	SharesFile string `envconfig:"FD_SHARES_FILE"`
}

// Load reads the environment and validates the result
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Filesystem.TempDir == "" {
		cfg.Filesystem.TempDir = defaultTempDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to Default on any error
func LoadOrDefault() *Config {
	if cfg, err := Load(); err == nil {
		return cfg
	}
	return Default()
}

// Default is the configuration of an empty environment
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: defaultPort, Host: defaultHost},
		Logging:   LogConfig{Level: defaultLevel},
		RateLimit: RateLimitConfig{RequestsPerSecond: defaultRPS, Burst: defaultBurst, Enabled: true},
		Filesystem: FilesystemConfig{
			TempDir:    defaultTempDir(),
			YieldPause: defaultYieldPause,
		},
	}
}

// Validate checks values envconfig cannot type-check. Flags applied after
// Load should be validated again.
func (c *Config) Validate() error {
	var problems []error

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		problems = append(problems, fmt.Errorf("PORT %q is not a valid port", c.Server.Port))
	}
	if c.Filesystem.YieldPause < 0 {
		problems = append(problems, errors.New("FD_YIELD_PAUSE must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		problems = append(problems, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	return errors.Join(problems...)
}

// Addr is the host:port the server listens on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "filedeck")
}
