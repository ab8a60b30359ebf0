package startup

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, b := range getEnvBindings() {
		t.Setenv(b.EnvVar, "")
		os.Unsetenv(b.EnvVar)
	}
}

func TestNewViper_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRARY_PATH", "/photos")

	v, err := NewViper()
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}

	config, err := readConfig(v)
	if err != nil {
		t.Fatalf("readConfig() error = %v", err)
	}

	if config.LibraryPath != "/photos" {
		t.Errorf("LibraryPath = %q", config.LibraryPath)
	}
	if config.Lookback != 3 {
		t.Errorf("Lookback = %d, want 3", config.Lookback)
	}
	if config.DatabasePath != filepath.Join("/database", DatabaseFileName) {
		t.Errorf("DatabasePath = %q", config.DatabasePath)
	}
	if config.Port != "8080" || config.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s, want 8080/9090", config.Port, config.MetricsPort)
	}
	if !config.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if config.WatchSettle != 2*time.Second {
		t.Errorf("WatchSettle = %v, want 2s", config.WatchSettle)
	}
	if config.AuthEnabled() {
		t.Error("AuthEnabled() should be false without ADMIN_PASSWORD_HASH")
	}
	if config.Log.Path != "" || config.Log.MaxSizeMB != 100 {
		t.Errorf("Log = %+v", config.Log)
	}
}

func TestNewViper_EnvOverrides(t *testing.T) {
	clearEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("LIBRARY_PATH", "/mnt/photos")
	t.Setenv("LOOKBACK_MONTHS", "6")
	t.Setenv("DATABASE_DIR", "/var/lib/indexer")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("WATCH_SETTLE", "500ms")
	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))
	t.Setenv("LOG_FILE", "/var/log/indexer.log")
	t.Setenv("LOG_COMPRESS", "true")

	v, err := NewViper()
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	config, err := readConfig(v)
	if err != nil {
		t.Fatalf("readConfig() error = %v", err)
	}

	if config.Lookback != 6 {
		t.Errorf("Lookback = %d, want 6", config.Lookback)
	}
	if config.DatabasePath != "/var/lib/indexer/images.db" {
		t.Errorf("DatabasePath = %q", config.DatabasePath)
	}
	if config.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
	if config.WatchSettle != 500*time.Millisecond {
		t.Errorf("WatchSettle = %v", config.WatchSettle)
	}
	if !config.AuthEnabled() {
		t.Error("AuthEnabled() = false with a hash set")
	}
	if config.Log.Path != "/var/log/indexer.log" || !config.Log.Compress {
		t.Errorf("Log = %+v", config.Log)
	}
}

func TestNewViper_FlagPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRARY_PATH", "/from/env")

	v, err := NewViper()
	if err != nil {
		t.Fatal(err)
	}
	v.Set(KeyLibraryPath, "/from/flag")

	config, err := readConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if config.LibraryPath != "/from/flag" {
		t.Errorf("LibraryPath = %q, want the flag value", config.LibraryPath)
	}
}

func TestReadConfig_MissingLibrary(t *testing.T) {
	clearEnv(t)

	v, err := NewViper()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readConfig(v); !errors.Is(err, ErrConfigMissing) {
		t.Errorf("readConfig() error = %v, want ErrConfigMissing", err)
	}
}

func TestNewViper_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"lookback zero", "LOOKBACK_MONTHS", "0"},
		{"lookback text", "LOOKBACK_MONTHS", "three"},
		{"port range", "PORT", "70000"},
		{"metrics bool", "METRICS_ENABLED", "maybe"},
		{"settle duration", "WATCH_SETTLE", "soon"},
		{"negative settle", "WATCH_SETTLE", "-1s"},
		{"plain password", "ADMIN_PASSWORD_HASH", "hunter2"},
		{"log backups", "LOG_MAX_BACKUPS", "-1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.value)

			_, err := NewViper()
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("NewViper() error = %v, want ErrConfigInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.env) {
				t.Errorf("error %q does not name %s", err, tt.env)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	library := t.TempDir()
	dbDir := filepath.Join(t.TempDir(), "nested", "db")
	t.Setenv("LIBRARY_PATH", library)
	t.Setenv("DATABASE_DIR", dbDir)

	v, err := NewViper()
	if err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if info, err := os.Stat(dbDir); err != nil || !info.IsDir() {
		t.Errorf("database directory not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dbDir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}
	if config.LibraryPath != library {
		t.Errorf("LibraryPath = %q, want %q", config.LibraryPath, library)
	}
}

func TestLoadConfig_LibraryProblems(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(t.TempDir(), "missing"), ErrConfigMissing},
		{"not a dir", file, ErrConfigInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LIBRARY_PATH", tt.path)
			t.Setenv("DATABASE_DIR", t.TempDir())

			v, err := NewViper()
			if err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(v); !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureDirectory_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "database"); err == nil {
		t.Error("ensureDirectory() on a file should fail")
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {}).Methods("GET").Name("healthz")
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reconcile", func(http.ResponseWriter, *http.Request) {}).Methods("POST")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	found := map[string]bool{}
	for _, r := range routes {
		found[r.Method+" "+r.Path] = true
	}
	if !found["GET /healthz"] || !found["POST /api/reconcile"] {
		t.Errorf("routes = %+v", routes)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/healthz":          "healthz",
		"/api/reconcile":    "api/reconcile",
		"/api/stats/detail": "api/stats",
		"/":                 "",
		"/api":              "api",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}
