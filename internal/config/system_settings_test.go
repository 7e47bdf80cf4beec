package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetSystemSettingStringDefaults(t *testing.T) {
	t.Setenv(SERVER_WEB_PORT, "")
	if got := GetSystemSettingString(SERVER_WEB_PORT); got != "8080" {
		t.Fatalf("expected default port 8080, got %q", got)
	}
	t.Setenv(SERVER_WEB_PORT, "9090")
	if got := GetSystemSettingInteger(SERVER_WEB_PORT); got != 9090 {
		t.Fatalf("expected 9090, got %d", got)
	}
	if got := GetSystemSettingString(DATABASE_URL); got != "" {
		t.Fatalf("expected no default for database url, got %q", got)
	}
}

func TestGetSystemSettingDurationAndBool(t *testing.T) {
	t.Setenv(PERSON_CACHE_TTL, "")
	if got := GetSystemSettingDuration(PERSON_CACHE_TTL); got != 5*time.Minute {
		t.Fatalf("expected 5m, got %v", got)
	}
	t.Setenv(TRACING_ENABLED, "true")
	if !GetSystemSettingBool(TRACING_ENABLED) {
		t.Fatalf("expected tracing enabled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("WFREST_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(LOG_LEVEL, "")
	os.Unsetenv(LOG_LEVEL)
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := GetSystemSettingString(LOG_LEVEL); got != "debug" {
		t.Fatalf("expected debug from env file, got %q", got)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
