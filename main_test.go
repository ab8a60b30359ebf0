package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photo-indexer/internal/startup"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func clearConfigEnv(t *testing.T) {
	unsetEnv(t, "LIBRARY_PATH", "DATABASE_DIR", "LOOKBACK_MONTHS", "WATCH_SETTLE",
		"PORT", "METRICS_PORT", "METRICS_ENABLED", "ADMIN_PASSWORD_HASH", "LOG_FILE")
}

func TestVersionCommand(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LOOKBACK_MONTHS", "not-a-number")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version should ignore configuration errors, got %v", err)
	}
	if !strings.Contains(out.String(), startup.Version) {
		t.Errorf("output %q does not contain version %q", out.String(), startup.Version)
	}
}

func TestMissingLibraryFails(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_DIR", t.TempDir())

	for _, args := range [][]string{{"provision"}, {"serve"}, {}} {
		cmd := newRootCommand()
		cmd.SetArgs(args)
		if err := cmd.Execute(); !errors.Is(err, startup.ErrConfigMissing) {
			t.Errorf("%v: error = %v, want ErrConfigMissing", args, err)
		}
	}
}

func TestInvalidEnvFails(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LIBRARY_PATH", t.TempDir())
	t.Setenv("WATCH_SETTLE", "whenever")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"provision"})
	if err := cmd.Execute(); !errors.Is(err, startup.ErrConfigInvalid) {
		t.Errorf("error = %v, want ErrConfigInvalid", err)
	}
}

func TestProvisionCommand(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("METRICS_ENABLED", "false")

	library := t.TempDir()
	month := filepath.Join(library, "Year 2024", "2024 (07)")
	if err := os.MkdirAll(month, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(month, "img1.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	dbDir := t.TempDir()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"provision", "--library", library, "--database-dir", dbDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("provision error = %v", err)
	}
	if !strings.Contains(out.String(), "1 synced") {
		t.Errorf("output = %q, want one synced directory", out.String())
	}
	if _, err := os.Stat(filepath.Join(dbDir, startup.DatabaseFileName)); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(month, ".dirhash")); err != nil {
		t.Errorf("marker not written: %v", err)
	}
}
