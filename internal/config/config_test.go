package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"LENS_PORT", "LUMIN_BACKEND_URL", "NATS_URL", "NATS_TOKEN",
		"LOG_LEVEL", "LENS_DEFAULT_MODEL", "LENS_STREAM_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8760 {
		t.Errorf("expected default port 8760, got %d", cfg.Port)
	}
	if cfg.BackendURL != "http://lumin:8000" {
		t.Errorf("expected default backend url, got %s", cfg.BackendURL)
	}
	if cfg.NatsURL != "" {
		t.Errorf("expected NATS off by default, got %s", cfg.NatsURL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.DefaultModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", cfg.DefaultModel)
	}
	if cfg.StreamTimeout != 90*time.Second {
		t.Errorf("expected default stream timeout 90s, got %s", cfg.StreamTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("LENS_PORT", "9001")
	t.Setenv("LUMIN_BACKEND_URL", "http://localhost:8000")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_TOKEN", "s3cr3t")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LENS_DEFAULT_MODEL", "o1-mini")
	t.Setenv("LENS_STREAM_TIMEOUT_SECONDS", "15")

	cfg := Load()

	if cfg.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Port)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("unexpected backend url: %s", cfg.BackendURL)
	}
	if cfg.NatsURL != "nats://localhost:4222" || cfg.NatsToken != "s3cr3t" {
		t.Errorf("unexpected nats config: %s / %s", cfg.NatsURL, cfg.NatsToken)
	}
	if cfg.DefaultModel != "o1-mini" {
		t.Errorf("unexpected default model: %s", cfg.DefaultModel)
	}
	if cfg.StreamTimeout != 15*time.Second {
		t.Errorf("unexpected stream timeout: %s", cfg.StreamTimeout)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("LENS_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8760 {
		t.Errorf("expected fallback port on invalid value, got %d", cfg.Port)
	}
}
