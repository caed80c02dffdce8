package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no heartbeat)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State describes the lifecycle of the push-channel connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateEvent is a single connection state transition. Cause is a
// human-readable reason, set only for StateError.
type StateEvent struct {
	State State
	Cause string
	At    time.Time
}

// Message is a raw inbound (topic, payload) frame.
type Message struct {
	Topic      string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Command is an outbound protocol frame (subscribe, unsubscribe, send).
type Command struct {
	Cmd     string          `json:"cmd"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command verbs.
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
	CmdSend        = "send"
)

// inboundFrame is the wire format of a pushed message.
type inboundFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Config configures a Conn.
type Config struct {
	URL               string        // WebSocket URL (e.g. ws://localhost:8081/ws)
	Token             string        // Opaque bearer token supplied by the embedding app
	ReconnectDelay    time.Duration // Fixed wait between reconnect attempts
	HeartbeatInterval time.Duration // Ping cadence in each direction
	HeartbeatTimeout  time.Duration // Max silence before the connection is stale
	WriteTimeout      time.Duration // Write deadline for sends
	BufferSize        int           // Message channel buffer size
}

// DefaultConfig returns sensible defaults. The reconnect delay and
// heartbeat cadence match the backend's expectations.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    5 * time.Second,
		HeartbeatInterval: 4 * time.Second,
		HeartbeatTimeout:  12 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        256,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
}
