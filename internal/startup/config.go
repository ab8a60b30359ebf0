package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/logging"
)

// DatabaseFileName is the SQLite file created inside the database directory.
const DatabaseFileName = "images.db"

var (
	// ErrConfigMissing is returned when a required setting has no value.
	ErrConfigMissing = errors.New("required configuration missing")
	// ErrConfigInvalid is returned when a setting cannot be parsed.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Config holds all application configuration
type Config struct {
	LibraryPath       string
	DatabaseDir       string
	Lookback          int
	Port              string
	MetricsPort       string
	MetricsEnabled    bool
	WatchSettle       time.Duration
	AdminPasswordHash string
	LogHealthChecks   bool
	Log               logging.FileOptions

	// Derived paths
	DatabasePath string
}

// AuthEnabled reports whether admin routes require a password.
func (c *Config) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// LoadConfig reads and validates configuration from v. The library path is
// required and must be an existing directory; the database directory is
// created when missing and must be writable.
func LoadConfig(v *viper.Viper) (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := readConfig(v)
	if err != nil {
		return nil, err
	}

	logging.Info("  LIBRARY_PATH:        %s", config.LibraryPath)
	logging.Info("  LOOKBACK_MONTHS:     %d", config.Lookback)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  WATCH_SETTLE:        %v", config.WatchSettle)
	logging.Info("  ADMIN AUTH:          %s", enabledString(config.AuthEnabled()))
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if config.Log.Path != "" {
		logging.Info("  LOG_FILE:            %s (max %dMB, %d backups)",
			config.Log.Path, config.Log.MaxSizeMB, config.Log.MaxBackups)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := checkLibrary(config.LibraryPath); err != nil {
		return nil, fmt.Errorf("library directory error: %w", err)
	}
	logging.Info("  [OK] Library directory: %s", config.LibraryPath)

	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Admin auth:  %s", enabledString(config.AuthEnabled()))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// readConfig converts the viper values into a Config without touching the
// filesystem.
func readConfig(v *viper.Viper) (*Config, error) {
	libraryPath := v.GetString(KeyLibraryPath)
	if libraryPath == "" {
		return nil, fmt.Errorf("%w: LIBRARY_PATH (or --library) must be set", ErrConfigMissing)
	}

	libraryPath, err := filepath.Abs(libraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}

	databaseDir, err := filepath.Abs(v.GetString(KeyDatabaseDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	settle, err := time.ParseDuration(v.GetString(KeyWatchSettle))
	if err != nil || settle < 0 {
		return nil, fmt.Errorf("%w: WATCH_SETTLE %q", ErrConfigInvalid, v.GetString(KeyWatchSettle))
	}

	lookback := v.GetInt(KeyLookback)
	if lookback < 1 {
		return nil, fmt.Errorf("%w: LOOKBACK_MONTHS must be at least 1, got %d", ErrConfigInvalid, lookback)
	}

	return &Config{
		LibraryPath:       libraryPath,
		DatabaseDir:       databaseDir,
		Lookback:          lookback,
		Port:              v.GetString(KeyPort),
		MetricsPort:       v.GetString(KeyMetricsPort),
		MetricsEnabled:    v.GetBool(KeyMetricsEnabled),
		WatchSettle:       settle,
		AdminPasswordHash: v.GetString(KeyAdminPasswordHash),
		LogHealthChecks:   v.GetBool(KeyLogHealthChecks),
		Log: logging.FileOptions{
			Path:       v.GetString(KeyLogFile),
			MaxSizeMB:  v.GetInt(KeyLogMaxSize),
			MaxBackups: v.GetInt(KeyLogMaxBackups),
			MaxAgeDays: v.GetInt(KeyLogMaxAge),
			Compress:   v.GetBool(KeyLogCompress),
		},
		DatabasePath: filepath.Join(databaseDir, DatabaseFileName),
	}, nil
}

// checkLibrary verifies the library root exists and is a directory. It is
// never created.
func checkLibrary(path string) error {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: LIBRARY_PATH %s does not exist", ErrConfigMissing, path)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: LIBRARY_PATH %s is not a directory", ErrConfigInvalid, path)
	}

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    Contents: %d entries (top level)", len(entries))
		}
	}
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
