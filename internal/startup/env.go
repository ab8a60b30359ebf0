package startup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Configuration keys shared by the environment bindings and the CLI flags.
const (
	KeyLibraryPath       = "library"
	KeyLookback          = "lookback"
	KeyDatabaseDir       = "database_dir"
	KeyPort              = "port"
	KeyMetricsPort       = "metrics_port"
	KeyMetricsEnabled    = "metrics_enabled"
	KeyWatchSettle       = "watch_settle"
	KeyAdminPasswordHash = "admin_password_hash"
	KeyLogHealthChecks   = "log_health_checks"
	KeyLogFile           = "log_file"
	KeyLogMaxSize        = "log_max_size"
	KeyLogMaxBackups     = "log_max_backups"
	KeyLogMaxAge         = "log_max_age"
	KeyLogCompress       = "log_compress"
)

// envBinding ties a configuration key to its environment variable.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{KeyLibraryPath, "LIBRARY_PATH", nil},
		{KeyLookback, "LOOKBACK_MONTHS", validatePositiveInt},
		{KeyDatabaseDir, "DATABASE_DIR", nil},
		{KeyPort, "PORT", validatePort},
		{KeyMetricsPort, "METRICS_PORT", validatePort},
		{KeyMetricsEnabled, "METRICS_ENABLED", validateBool},
		{KeyWatchSettle, "WATCH_SETTLE", validateDuration},
		{KeyAdminPasswordHash, "ADMIN_PASSWORD_HASH", validateBcryptHash},
		{KeyLogHealthChecks, "LOG_HEALTH_CHECKS", validateBool},
		{KeyLogFile, "LOG_FILE", nil},
		{KeyLogMaxSize, "LOG_MAX_SIZE_MB", validatePositiveInt},
		{KeyLogMaxBackups, "LOG_MAX_BACKUPS", validateNonNegativeInt},
		{KeyLogMaxAge, "LOG_MAX_AGE_DAYS", validateNonNegativeInt},
		{KeyLogCompress, "LOG_COMPRESS", validateBool},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLookback, 3)
	v.SetDefault(KeyDatabaseDir, "/database")
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyMetricsPort, "9090")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyWatchSettle, "2s")
	v.SetDefault(KeyLogHealthChecks, true)
	v.SetDefault(KeyLogMaxSize, 100)
	v.SetDefault(KeyLogMaxBackups, 5)
	v.SetDefault(KeyLogMaxAge, 28)
	v.SetDefault(KeyLogCompress, false)
}

// NewViper returns a viper instance with defaults and environment bindings
// in place. CLI flags are bound on top of it by the caller.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return v, err
	}
	return v, nil
}

// bindEnvVars binds every environment variable and validates the ones that
// are set. All problems are reported together.
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrConfigInvalid, strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validatePositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validatePort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not a port number: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("must not be negative, got %v", d)
	}
	return nil
}

func validateBcryptHash(value string) error {
	if _, err := bcrypt.Cost([]byte(value)); err != nil {
		return fmt.Errorf("not a bcrypt hash: %w", err)
	}
	return nil
}
