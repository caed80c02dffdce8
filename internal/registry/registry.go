package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
)

// subEntry tracks one reference-counted channel subscription.
type subEntry struct {
	topic     string
	auctionID int64 // 0 for the notification queue
	refs      int
	sink      UpdateSink
	alert     AlertFunc
}

// Registry multiplexes auction subscriptions over one push channel.
type Registry struct {
	ch     Channel
	logger *slog.Logger

	mu        sync.Mutex
	subs      map[string]*subEntry
	connected bool
	stateSubs []chan connection.StateEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Registry on top of ch. Start must be called before any
// messages are routed.
func New(ch Channel, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ch:     ch,
		logger: logger,
		subs:   make(map[string]*subEntry),
	}
}

// Start begins consuming connection state events and inbound messages.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.dispatchLoop()

	r.logger.Info("subscription registry started")
	return nil
}

// Stop halts dispatch. In-flight frames already handed to sinks complete.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("subscription registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers interest in one auction. Subscribing to an auction
// that already has a subscriber returns a new handle on the existing
// subscription; the channel subscription is issued only on the first one.
func (r *Registry) Subscribe(auctionID int64, sink UpdateSink) *Handle {
	topic := AuctionTopic(auctionID)

	r.mu.Lock()
	entry, ok := r.subs[topic]
	if ok {
		entry.refs++
		r.mu.Unlock()
		return newHandle(r, topic)
	}

	entry = &subEntry{
		topic:     topic,
		auctionID: auctionID,
		refs:      1,
		sink:      sink,
	}
	r.subs[topic] = entry
	connected := r.connected
	r.mu.Unlock()

	if connected {
		r.issueSubscribe(topic)
	}
	return newHandle(r, topic)
}

// SubscribeSelf registers the private notification queue for userID.
// Alerts are delivered to fn, never into any auction's state.
func (r *Registry) SubscribeSelf(userID string, fn AlertFunc) *Handle {
	r.mu.Lock()
	entry, ok := r.subs[NotificationsTopic]
	if ok {
		entry.refs++
		r.mu.Unlock()
		return newHandle(r, NotificationsTopic)
	}

	entry = &subEntry{
		topic: NotificationsTopic,
		refs:  1,
		alert: fn,
	}
	r.subs[NotificationsTopic] = entry
	connected := r.connected
	r.mu.Unlock()

	r.logger.Debug("registered notification queue", "user", userID)

	if connected {
		r.issueSubscribe(NotificationsTopic)
	}
	return newHandle(r, NotificationsTopic)
}

// SubscribeStates returns a stream of connection state transitions, for
// observers like the view layer. The registry consumes the connection's
// own event channel, so interested parties subscribe here instead.
func (r *Registry) SubscribeStates() <-chan connection.StateEvent {
	ch := make(chan connection.StateEvent, 16)
	r.mu.Lock()
	r.stateSubs = append(r.stateSubs, ch)
	r.mu.Unlock()
	return ch
}

// release decrements the reference count for topic and tears down the
// channel subscription once it reaches zero.
func (r *Registry) release(topic string) {
	r.mu.Lock()
	entry, ok := r.subs[topic]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.subs, topic)
	connected := r.connected
	r.mu.Unlock()

	if connected {
		if err := r.ch.SendCommand(connection.Command{Cmd: connection.CmdUnsubscribe, Topic: topic}); err != nil {
			r.logger.Warn("failed to unsubscribe", "topic", topic, "error", err)
		}
	}
}

// dispatchLoop routes state events and inbound frames.
func (r *Registry) dispatchLoop() {
	defer r.wg.Done()

	states := r.ch.States()
	messages := r.ch.Messages()

	for {
		select {
		case <-r.ctx.Done():
			return

		case ev, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			r.handleState(ev)

		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.dispatch(msg)
		}
	}
}

// handleState restores subscriptions on every transition into Connected.
// Subscriptions do not survive a reconnect on the server side.
func (r *Registry) handleState(ev connection.StateEvent) {
	r.mu.Lock()
	r.connected = ev.State == connection.StateConnected
	var topics []string
	if r.connected {
		topics = make([]string, 0, len(r.subs))
		for topic := range r.subs {
			topics = append(topics, topic)
		}
	}
	observers := r.stateSubs
	r.mu.Unlock()

	for _, ch := range observers {
		select {
		case ch <- ev:
		default:
			r.logger.Debug("state observer lagging, dropping event")
		}
	}

	if ev.State != connection.StateConnected {
		return
	}

	r.logger.Info("connection established, restoring subscriptions", "count", len(topics))
	for _, topic := range topics {
		r.issueSubscribe(topic)
	}
}

// dispatch routes one inbound frame to its registered sink or callback.
func (r *Registry) dispatch(msg connection.Message) {
	r.mu.Lock()
	entry, ok := r.subs[msg.Topic]
	r.mu.Unlock()

	if !ok {
		// Unknown or already unsubscribed topic.
		r.logger.Debug("dropping frame for unknown topic", "topic", msg.Topic)
		return
	}

	if entry.alert != nil {
		var wire alertWire
		if err := json.Unmarshal(msg.Payload, &wire); err != nil {
			r.logger.Warn("dropping malformed alert", "error", err)
			return
		}
		alert, err := wire.toModel()
		if err != nil {
			r.logger.Warn("dropping malformed alert", "error", err)
			return
		}
		entry.alert(alert)
		return
	}

	var wire auctionUpdateWire
	if err := json.Unmarshal(msg.Payload, &wire); err != nil {
		r.logger.Warn("dropping malformed update", "topic", msg.Topic, "error", err)
		return
	}
	update, err := wire.toModel()
	if err != nil {
		r.logger.Warn("dropping malformed update", "topic", msg.Topic, "error", err)
		return
	}

	if update.AuctionID != entry.auctionID {
		r.logger.Warn("update auction mismatch, dropping",
			"topic", msg.Topic,
			"auction_id", update.AuctionID,
		)
		return
	}

	entry.sink.Apply(update)
}

// issueSubscribe sends the subscribe command for topic. Failures are
// logged only; the next Connected transition retries.
func (r *Registry) issueSubscribe(topic string) {
	if err := r.ch.SendCommand(connection.Command{Cmd: connection.CmdSubscribe, Topic: topic}); err != nil {
		r.logger.Warn("failed to subscribe", "topic", topic, "error", err)
	}
}

// Handle is one reference to a topic subscription. Release is idempotent.
type Handle struct {
	r     *Registry
	topic string
	once  sync.Once
}

func newHandle(r *Registry, topic string) *Handle {
	return &Handle{r: r, topic: topic}
}

// Topic returns the subscribed topic.
func (h *Handle) Topic() string {
	return h.topic
}

// Release drops this reference. The channel subscription is torn down
// when the last reference is released.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.r.release(h.topic)
	})
}
