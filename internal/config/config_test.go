package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setUpstreamEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "test-key")
	t.Setenv("GOOGLE_TRANSLATE_API_URL", "https://translate.example.com/v2")
}

func TestLoadDefaultsWithEnvCredentials(t *testing.T) {
	setUpstreamEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.BindAddress != "0.0.0.0" {
		t.Errorf("Expected default bind address 0.0.0.0, got %s", cfg.Server.BindAddress)
	}
	if cfg.Server.GetHeartbeatInterval() != 15*time.Second {
		t.Errorf("Expected 15s heartbeat interval, got %v", cfg.Server.GetHeartbeatInterval())
	}
	if cfg.Upstream.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Upstream.MaxRetries)
	}
	if cfg.Upstream.GetBackoffBase() != time.Second {
		t.Errorf("Expected 1s backoff base, got %v", cfg.Upstream.GetBackoffBase())
	}
	if cfg.Upstream.APIKey != "test-key" {
		t.Errorf("Expected API key from env, got %q", cfg.Upstream.APIKey)
	}
}

func TestLoadMissingCredentialsFails(t *testing.T) {
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "")
	t.Setenv("GOOGLE_TRANSLATE_API_URL", "")

	if _, err := Load(""); err == nil {
		t.Error("Expected error when upstream credentials are absent")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	setUpstreamEnv(t)

	content := `
server:
  port: 9090
  bind_address: "127.0.0.1"
  heartbeat_interval: 30
  heartbeat_timeout: 30
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Server.GetHeartbeatInterval() != 30*time.Second {
		t.Errorf("Expected 30s heartbeat interval from file, got %v", cfg.Server.GetHeartbeatInterval())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	setUpstreamEnv(t)
	t.Setenv("PORT", "7070")

	content := "server:\n  port: 9090\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env PORT to win, got %d", cfg.Server.Port)
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty bind address", func(c *Config) { c.Server.BindAddress = "" }},
		{"zero heartbeat", func(c *Config) { c.Server.HeartbeatInterval = 0 }},
		{"zero retries", func(c *Config) { c.Upstream.MaxRetries = 0 }},
		{"negative backoff", func(c *Config) { c.Upstream.BackoffBaseMs = -1 }},
		{"zero timeout", func(c *Config) { c.Upstream.TimeoutSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Upstream.APIKey = "k"
			cfg.Upstream.URL = "https://example.com"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
