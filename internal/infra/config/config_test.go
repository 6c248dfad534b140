package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.GatewayBaseURL != "http://localhost:8000" {
		t.Errorf("GatewayBaseURL = %q", cfg.GatewayBaseURL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.MaxToolRounds != 4 {
		t.Errorf("MaxToolRounds = %d, want 4", cfg.MaxToolRounds)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", cfg.CacheTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SOUS_HTTP_PORT", "9191")
	t.Setenv("SOUS_CALL_TIMEOUT", "5s")
	t.Setenv("SOUS_LOG_PRETTY", "true")

	cfg := Load()
	if cfg.HTTPPort != 9191 {
		t.Errorf("HTTPPort = %d, want 9191", cfg.HTTPPort)
	}
	if cfg.CallTimeout != 5*time.Second {
		t.Errorf("CallTimeout = %v, want 5s", cfg.CallTimeout)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty should be true")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SOUS_HTTP_PORT", "not-a-number")
	t.Setenv("SOUS_CACHE_TTL", "soon")

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default 8080 for invalid input", cfg.HTTPPort)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want default for invalid input", cfg.CacheTTL)
	}
}
