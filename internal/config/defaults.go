package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL    = "http://localhost:8081"
	DefaultWSURL      = "ws://localhost:8081/ws"
	DefaultMaxRetries = 3
	DefaultBufferSize = 256

	DefaultAPITimeout        = Duration(30 * time.Second)
	DefaultReconnectDelay    = Duration(5 * time.Second)
	DefaultHeartbeatInterval = Duration(4 * time.Second)
	DefaultHeartbeatTimeout  = Duration(12 * time.Second)
	DefaultWriteTimeout      = Duration(5 * time.Second)
	DefaultSubmitTimeout     = Duration(15 * time.Second)
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Channel defaults
	if c.Channel.ReconnectDelay == 0 {
		c.Channel.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Channel.HeartbeatInterval == 0 {
		c.Channel.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Channel.HeartbeatTimeout == 0 {
		c.Channel.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Channel.WriteTimeout == 0 {
		c.Channel.WriteTimeout = DefaultWriteTimeout
	}
	if c.Channel.BufferSize == 0 {
		c.Channel.BufferSize = DefaultBufferSize
	}

	// Bids defaults
	if c.Bids.SubmitTimeout == 0 {
		c.Bids.SubmitTimeout = DefaultSubmitTimeout
	}
}
