package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	BackendURL    string
	NatsURL       string
	NatsToken     string
	LogLevel      string
	DefaultModel  string
	StreamTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:          envInt("LENS_PORT", 8760),
		BackendURL:    envStr("LUMIN_BACKEND_URL", "http://lumin:8000"),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		DefaultModel:  envStr("LENS_DEFAULT_MODEL", "gpt-4o-mini"),
		StreamTimeout: time.Duration(envInt("LENS_STREAM_TIMEOUT_SECONDS", 90)) * time.Second,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
