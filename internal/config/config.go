package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values can be written in the
// usual "5s" / "500ms" form.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the root configuration for the sync core.
type Config struct {
	API     APIConfig     `yaml:"api"`
	User    UserConfig    `yaml:"user"`
	Channel ChannelConfig `yaml:"channel"`
	Bids    BidsConfig    `yaml:"bids"`
}

// APIConfig holds auction backend settings.
type APIConfig struct {
	BaseURL    string   `yaml:"base_url"`
	WSURL      string   `yaml:"ws_url"`
	Token      string   `yaml:"token"` // Opaque bearer token from the embedding app
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

// UserConfig identifies the local user.
type UserConfig struct {
	Username string `yaml:"username"`
}

// ChannelConfig holds push-channel connection settings.
type ChannelConfig struct {
	ReconnectDelay    Duration `yaml:"reconnect_delay"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  Duration `yaml:"heartbeat_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	BufferSize        int      `yaml:"buffer_size"`
}

// BidsConfig holds bid submission settings.
type BidsConfig struct {
	SubmitTimeout Duration `yaml:"submit_timeout"`
}
