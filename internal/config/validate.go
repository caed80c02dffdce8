package config

import "errors"

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}
	if c.User.Username == "" {
		return errors.New("user.username is required")
	}
	if c.Channel.HeartbeatTimeout <= c.Channel.HeartbeatInterval {
		return errors.New("channel.heartbeat_timeout must exceed channel.heartbeat_interval")
	}
	if c.Channel.ReconnectDelay <= 0 {
		return errors.New("channel.reconnect_delay must be positive")
	}
	if c.Bids.SubmitTimeout <= 0 {
		return errors.New("bids.submit_timeout must be positive")
	}
	return nil
}
