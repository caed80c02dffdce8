package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_AUCTION_TOKEN", "secret-token")

	path := writeConfig(t, `
api:
  base_url: http://example.com
  token: ${TEST_AUCTION_TOKEN}
user:
  username: alice
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Token != "secret-token" {
		t.Errorf("Token = %q, want secret-token", cfg.API.Token)
	}
	if cfg.API.BaseURL != "http://example.com" {
		t.Errorf("BaseURL = %q, want http://example.com", cfg.API.BaseURL)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeConfig(t, `
user:
  username: alice
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.Channel.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("ReconnectDelay = %v, want %v", cfg.Channel.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Bids.SubmitTimeout != DefaultSubmitTimeout {
		t.Errorf("SubmitTimeout = %v, want %v", cfg.Bids.SubmitTimeout, DefaultSubmitTimeout)
	}
}

func TestLoadAndValidate_MissingUsername(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://example.com
`)

	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation error for missing username")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.User.Username = "alice"
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"missing username", func(c *Config) { c.User.Username = "" }, true},
		{"heartbeat timeout too small", func(c *Config) {
			c.Channel.HeartbeatTimeout = c.Channel.HeartbeatInterval
		}, true},
		{"zero reconnect delay", func(c *Config) { c.Channel.ReconnectDelay = 0 }, true},
		{"zero submit timeout", func(c *Config) { c.Bids.SubmitTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
channel:
  reconnect_delay: not-a-duration
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_DurationParsing(t *testing.T) {
	path := writeConfig(t, `
channel:
  reconnect_delay: 2s
  heartbeat_interval: 500ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Channel.ReconnectDelay.Std() != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", cfg.Channel.ReconnectDelay)
	}
	if cfg.Channel.HeartbeatInterval.Std() != 500*time.Millisecond {
		t.Errorf("HeartbeatInterval = %v, want 500ms", cfg.Channel.HeartbeatInterval)
	}
}
