package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ARENA_BROADCAST_INTERVAL", "")
	t.Setenv("ARENA_STRICT_EAT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.BroadcastInterval != 16*time.Millisecond {
		t.Errorf("BroadcastInterval = %s, want 16ms", cfg.BroadcastInterval)
	}
	if cfg.StrictEat {
		t.Errorf("StrictEat should default to false")
	}
}

func TestLoadReadsOTLPEndpoint(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ARENA_BROADCAST_INTERVAL", "")
	t.Setenv("ARENA_STRICT_EAT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("OTLPEndpoint = %q, want empty by default", cfg.OTLPEndpoint)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OTLPEndpoint != "http://collector:4317" {
		t.Errorf("OTLPEndpoint = %q, want http://collector:4317", cfg.OTLPEndpoint)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ARENA_STRICT_EAT", "")
	t.Setenv("ARENA_BROADCAST_INTERVAL", "")

	path := filepath.Join(t.TempDir(), "arena.env")
	body := "PORT=4100\nARENA_STRICT_EAT=true\nARENA_BROADCAST_INTERVAL=20ms\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv does not override variables that are already set, including
	// empty ones, so clear them from the process first.
	for _, k := range []string{"PORT", "ARENA_STRICT_EAT", "ARENA_BROADCAST_INTERVAL"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range []string{"PORT", "ARENA_STRICT_EAT", "ARENA_BROADCAST_INTERVAL"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "4100" {
		t.Errorf("Port = %q, want 4100", cfg.Port)
	}
	if !cfg.StrictEat {
		t.Errorf("StrictEat = false, want true")
	}
	if cfg.BroadcastInterval != 20*time.Millisecond {
		t.Errorf("BroadcastInterval = %s, want 20ms", cfg.BroadcastInterval)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("ARENA_BROADCAST_INTERVAL", "")
	t.Setenv("ARENA_STRICT_EAT", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BroadcastInterval = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero interval: err = %v, want ErrInvalidConfig", err)
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
