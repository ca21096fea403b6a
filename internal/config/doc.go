// Package config provides 12-factor configuration management for the
// FileDeck backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Filesystem: temp dir for nested archives, bulk yield pause, shares file
//
// Network shares are listed in a separate YAML or TOML file named by
// FD_SHARES_FILE:
//
//	shares:
//	  - name: team
//	    server: nas
//	    share: public
//	    mount_path: /mnt/nas/public
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	shares, err := config.LoadShares(cfg.Filesystem.SharesFile)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - FD_TEMP_DIR, FD_YIELD_PAUSE, FD_SHARES_FILE
package config
