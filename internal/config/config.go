package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay server configuration. Capture-side
// tunables (voice activity detection) belong to the client, not here.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig contains the WebSocket listener configuration.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`
	// HeartbeatInterval is the ping period in seconds.
	HeartbeatInterval int `yaml:"heartbeat_interval"`
	// HeartbeatTimeout is how long a missing pong is tolerated, in seconds.
	HeartbeatTimeout int `yaml:"heartbeat_timeout"`
}

// UpstreamConfig contains the translation API client configuration.
type UpstreamConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	MaxRetries int    `yaml:"max_retries"`
	// BackoffBaseMs is the linear backoff base in milliseconds; attempt n
	// waits n times this value.
	BackoffBaseMs int `yaml:"backoff_base_ms"`
	// TimeoutSeconds bounds a single upstream HTTP call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AuthConfig contains the optional session token configuration. When
// TokenSecret is empty the /translate endpoint is open.
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
}

// Default returns the configuration defaults before file and environment
// overrides are applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			BindAddress:       "0.0.0.0",
			HeartbeatInterval: 15,
			HeartbeatTimeout:  15,
		},
		Upstream: UpstreamConfig{
			MaxRetries:     3,
			BackoffBaseMs:  1000,
			TimeoutSeconds: 30,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, then validates the result. An empty path
// skips the file layer.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		c.Server.BindAddress = v
	}
	if v := os.Getenv("GOOGLE_TRANSLATE_API_URL"); v != "" {
		c.Upstream.URL = v
	}
	if v := os.Getenv("GOOGLE_TRANSLATE_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("UPSTREAM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Upstream.MaxRetries = n
		}
	}
	if v := os.Getenv("SESSION_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}
}

// Validate performs validation of the complete configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("upstream config: %w", err)
	}
	return nil
}

// Validate validates the listener configuration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}
	if s.HeartbeatInterval < 1 {
		return fmt.Errorf("heartbeat_interval must be at least 1 second, got %d", s.HeartbeatInterval)
	}
	if s.HeartbeatTimeout < 1 {
		return fmt.Errorf("heartbeat_timeout must be at least 1 second, got %d", s.HeartbeatTimeout)
	}
	return nil
}

// Validate validates the upstream client configuration. The API key and URL
// are required; their absence is a startup failure, not a runtime one.
func (u *UpstreamConfig) Validate() error {
	if u.URL == "" {
		return fmt.Errorf("url cannot be empty, set GOOGLE_TRANSLATE_API_URL")
	}
	if u.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty, set GOOGLE_TRANSLATE_API_KEY")
	}
	if u.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", u.MaxRetries)
	}
	if u.BackoffBaseMs < 0 {
		return fmt.Errorf("backoff_base_ms cannot be negative, got %d", u.BackoffBaseMs)
	}
	if u.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", u.TimeoutSeconds)
	}
	return nil
}

// GetHeartbeatInterval returns the ping period as a time.Duration.
func (s *ServerConfig) GetHeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}

// GetHeartbeatTimeout returns the pong timeout as a time.Duration.
func (s *ServerConfig) GetHeartbeatTimeout() time.Duration {
	return time.Duration(s.HeartbeatTimeout) * time.Second
}

// GetBackoffBase returns the retry backoff base as a time.Duration.
func (u *UpstreamConfig) GetBackoffBase() time.Duration {
	return time.Duration(u.BackoffBaseMs) * time.Millisecond
}

// GetTimeout returns the per-call upstream timeout as a time.Duration.
func (u *UpstreamConfig) GetTimeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}
