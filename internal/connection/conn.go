package connection

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single logical push-channel connection. It keeps itself alive
// across transport failures until Close is called.
type Conn struct {
	cfg    Config
	logger *slog.Logger

	// Output channels, closed when the manage loop exits.
	states   chan StateEvent
	messages chan Message

	// Write serialization
	writeMu sync.Mutex

	mu       sync.RWMutex
	ws       *websocket.Conn
	state    State
	lastBeat time.Time
	opened   bool
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Conn. Open must be called to start it.
func New(cfg Config, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Conn{
		cfg:      cfg,
		logger:   logger,
		states:   make(chan StateEvent, 16),
		messages: make(chan Message, cfg.BufferSize),
		done:     make(chan struct{}),
	}
}

// Open starts the connection manage loop. Calling Open on an already open
// Conn is a no-op; calling it after Close is an error.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.opened {
		return nil
	}
	c.opened = true

	c.wg.Add(1)
	go c.run()
	return nil
}

// Close terminates the connection and all retry attempts. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	opened := c.opened
	c.mu.Unlock()

	close(c.done)

	if ws != nil {
		ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		ws.Close()
	}

	if opened {
		c.wg.Wait()
	} else {
		// Manage loop never ran; close outputs here.
		close(c.states)
		close(c.messages)
	}
	return nil
}

// Send marshals payload and writes it as a protocol-level frame on topic.
func (c *Conn) Send(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.SendCommand(Command{Cmd: CmdSend, Topic: topic, Payload: data})
}

// SendCommand writes a raw protocol command to the connection.
func (c *Conn) SendCommand(cmd Command) error {
	c.mu.RLock()
	ws := c.ws
	connected := c.state == StateConnected
	c.mu.RUnlock()

	if !connected || ws == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// States returns the stream of connection state transitions.
func (c *Conn) States() <-chan StateEvent {
	return c.states
}

// Messages returns the stream of inbound (topic, payload) frames.
func (c *Conn) Messages() <-chan Message {
	return c.messages
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is currently established.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// run is the manage loop: dial, serve, and retry with a fixed delay until
// Close. Runs on its own goroutine; it is the only sender on states.
func (c *Conn) run() {
	defer c.wg.Done()
	defer close(c.states)
	defer close(c.messages)

	for {
		select {
		case <-c.done:
			c.transition(StateDisconnected, "")
			return
		default:
		}

		c.transition(StateConnecting, "")

		ws, err := c.dial()
		if err != nil {
			c.logger.Warn("channel dial failed", "url", c.cfg.URL, "error", err)
			c.transition(StateError, err.Error())
			if !c.waitRetry() {
				c.transition(StateDisconnected, "")
				return
			}
			continue
		}

		c.attach(ws)
		c.transition(StateConnected, "")
		c.logger.Debug("channel connected", "url", c.cfg.URL)

		err = c.serve(ws)
		c.detach()

		select {
		case <-c.done:
			c.transition(StateDisconnected, "")
			return
		default:
		}

		c.logger.Warn("channel connection lost", "error", err)
		c.transition(StateError, err.Error())

		if !c.waitRetry() {
			c.transition(StateDisconnected, "")
			return
		}
	}
}

// dial establishes the WebSocket and installs heartbeat handlers.
func (c *Conn) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.Dial(c.cfg.URL, header)
	if err != nil {
		return nil, err
	}

	// Server ping → respond with pong and record liveness.
	ws.SetPingHandler(func(data string) error {
		c.markBeat()
		return ws.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Pong to our own ping also counts as liveness.
	ws.SetPongHandler(func(string) error {
		c.markBeat()
		return nil
	})

	return ws, nil
}

// serve pumps one established socket: reads frames and exchanges
// heartbeats until the socket fails, goes stale, or Close is called.
func (c *Conn) serve(ws *websocket.Conn) error {
	readErr := make(chan error, 1)
	go c.readLoop(ws, readErr)

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	fail := func(err error) error {
		ws.Close()
		<-readErr // wait for readLoop so only one sender exists on messages
		return err
	}

	for {
		select {
		case <-c.done:
			return fail(nil)

		case err := <-readErr:
			return err

		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send heartbeat", "error", err)
			}

			if time.Since(c.beat()) > c.cfg.HeartbeatTimeout {
				c.logger.Warn("no heartbeat received, connection stale",
					"timeout", c.cfg.HeartbeatTimeout,
				)
				return fail(ErrStaleConnection)
			}
		}
	}
}

// readLoop reads frames off one socket until it fails, then reports the
// error. Malformed frames are dropped; the session continues.
func (c *Conn) readLoop(ws *websocket.Conn, readErr chan<- error) {
	for {
		_, data, err := ws.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			readErr <- err
			return
		}

		c.markBeat()

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Topic == "" {
			c.logger.Warn("dropping malformed frame", "error", err, "size", len(data))
			continue
		}

		msg := Message{
			Topic:      frame.Topic,
			Payload:    frame.Payload,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			readErr <- nil
			return
		default:
			c.logger.Warn("message buffer full, dropping frame", "topic", frame.Topic)
		}
	}
}

// waitRetry sleeps for the fixed reconnect delay. Returns false if Close
// was called while waiting.
func (c *Conn) waitRetry() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.cfg.ReconnectDelay):
		return true
	}
}

func (c *Conn) attach(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.lastBeat = time.Now()
	c.mu.Unlock()
}

func (c *Conn) detach() {
	c.mu.Lock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
}

func (c *Conn) markBeat() {
	c.mu.Lock()
	c.lastBeat = time.Now()
	c.mu.Unlock()
}

func (c *Conn) beat() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastBeat
}

// transition records the new state and emits a StateEvent. Repeated
// identical states are not re-emitted.
func (c *Conn) transition(s State, cause string) {
	c.mu.Lock()
	if c.state == s && cause == "" {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	ev := StateEvent{State: s, Cause: cause, At: time.Now()}
	select {
	case c.states <- ev:
	default:
		c.logger.Warn("state event buffer full, dropping", "state", s.String())
	}
}
