// Package startup handles configuration loading and startup/shutdown
// logging.
//
// # Configuration
//
// Settings are read through viper from environment variables, with CLI flags
// bound on top by the command layer (see [NewViper] and [LoadConfig]):
//
//   - LIBRARY_PATH: Root of the photo library (required)
//   - LOOKBACK_MONTHS: Month directories checked at startup (default: 3)
//   - DATABASE_DIR: Directory holding images.db (default: /database)
//   - PORT: Admin HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - WATCH_SETTLE: Quiet period before a new file is indexed (default: 2s)
//   - ADMIN_PASSWORD_HASH: bcrypt hash guarding the admin POST routes
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - LOG_FILE: Optional log file, rotated by size
//   - LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS, LOG_COMPRESS
//
// A missing LIBRARY_PATH fails with [ErrConfigMissing]; malformed values
// fail with [ErrConfigInvalid].
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
