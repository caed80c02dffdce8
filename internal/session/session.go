package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/api"
	"github.com/Chakradhar-Malage/auctionsync/internal/bid"
	"github.com/Chakradhar-Malage/auctionsync/internal/config"
	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
	"github.com/Chakradhar-Malage/auctionsync/internal/reconcile"
	"github.com/Chakradhar-Malage/auctionsync/internal/registry"
)

// Session owns the process-wide sync machinery: one connection, one
// registry, one REST client, one bid submitter.
type Session struct {
	cfg    config.Config
	logger *slog.Logger

	rest *api.Client
	conn *connection.Conn
	reg  *registry.Registry
	sub  *bid.Submitter

	mu      sync.Mutex
	watches map[int64]*watchEntry
}

type watchEntry struct {
	rec    *reconcile.Reconciler
	handle *registry.Handle
	refs   int

	// ready is closed once the snapshot fetch resolves; initErr is set
	// before the close when the fetch failed.
	ready   chan struct{}
	initErr error
}

// New wires up a Session from configuration.
func New(cfg config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	rest := api.NewClient(cfg.API.BaseURL, cfg.API.Token,
		api.WithTimeout(cfg.API.Timeout.Std()),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithLogger(logger),
	)

	conn := connection.New(connection.Config{
		URL:               cfg.API.WSURL,
		Token:             cfg.API.Token,
		ReconnectDelay:    cfg.Channel.ReconnectDelay.Std(),
		HeartbeatInterval: cfg.Channel.HeartbeatInterval.Std(),
		HeartbeatTimeout:  cfg.Channel.HeartbeatTimeout.Std(),
		WriteTimeout:      cfg.Channel.WriteTimeout.Std(),
		BufferSize:        cfg.Channel.BufferSize,
	}, logger)

	s := &Session{
		cfg:     cfg,
		logger:  logger,
		rest:    rest,
		conn:    conn,
		reg:     registry.New(conn, logger),
		watches: make(map[int64]*watchEntry),
	}

	s.sub = bid.New(bid.Config{
		Bidder:        cfg.User.Username,
		SubmitTimeout: cfg.Bids.SubmitTimeout.Std(),
	}, rest, s, nil, logger)

	return s
}

// Start opens the push channel and begins routing.
func (s *Session) Start(ctx context.Context) error {
	if err := s.reg.Start(ctx); err != nil {
		return fmt.Errorf("start registry: %w", err)
	}
	if err := s.conn.Open(); err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	s.logger.Info("session started", "user", s.cfg.User.Username)
	return nil
}

// Stop tears the session down: channel first so the registry drains.
func (s *Session) Stop(ctx context.Context) error {
	s.conn.Close()
	if err := s.reg.Stop(ctx); err != nil {
		return err
	}
	s.logger.Info("session stopped")
	return nil
}

// Watch begins live-syncing one auction: subscribe to its topic, fetch
// the snapshot, seed the reconciler. Updates arriving before the
// snapshot are buffered and replayed. Watching an auction already
// watched shares its reconciler.
func (s *Session) Watch(ctx context.Context, auctionID int64) (*Watch, error) {
	s.mu.Lock()
	if entry, ok := s.watches[auctionID]; ok {
		entry.refs++
		s.mu.Unlock()

		// The first watcher owns the snapshot fetch; wait for it so a
		// failed fetch surfaces here too instead of handing back a
		// watch that will never initialize.
		select {
		case <-entry.ready:
		case <-ctx.Done():
			s.unwatch(auctionID)
			return nil, ctx.Err()
		}
		if entry.initErr != nil {
			s.unwatch(auctionID)
			return nil, entry.initErr
		}
		return &Watch{session: s, auctionID: auctionID, rec: entry.rec}, nil
	}

	rec := reconcile.New(auctionID, s.logger)
	entry := &watchEntry{rec: rec, refs: 1, ready: make(chan struct{})}
	s.watches[auctionID] = entry
	s.mu.Unlock()

	// Subscribe before fetching so nothing pushed during the fetch is
	// lost; the reconciler buffers pre-snapshot updates.
	entry.handle = s.reg.Subscribe(auctionID, &updateSink{session: s, rec: rec})

	snap, err := s.rest.GetAuction(ctx, auctionID)
	if err != nil {
		// Drop only this caller's reference. Watchers that joined
		// during the fetch release their own after reading initErr;
		// the subscription is torn down when the count hits zero.
		entry.initErr = err
		close(entry.ready)
		s.unwatch(auctionID)
		return nil, err
	}

	rec.Initialize(snap)
	close(entry.ready)
	s.logger.Info("watching auction",
		"auction_id", auctionID,
		"price", snap.CurrentPrice.String(),
	)

	return &Watch{session: s, auctionID: auctionID, rec: rec}, nil
}

// Submit places a bid through the session's submitter.
func (s *Session) Submit(ctx context.Context, auctionID int64, amount decimal.Decimal) (*bid.Pending, error) {
	return s.sub.Submit(ctx, auctionID, amount)
}

// Notifications subscribes the local user's private queue. Release the
// returned handle to stop alerts.
func (s *Session) Notifications(fn registry.AlertFunc) *registry.Handle {
	return s.reg.SubscribeSelf(s.cfg.User.Username, fn)
}

// ConnStates returns a stream of connection status transitions.
func (s *Session) ConnStates() <-chan connection.StateEvent {
	return s.reg.SubscribeStates()
}

// CurrentPrice implements bid.PriceSource against the watched auctions.
func (s *Session) CurrentPrice(auctionID int64) (decimal.Decimal, bool) {
	s.mu.Lock()
	entry, ok := s.watches[auctionID]
	s.mu.Unlock()

	if !ok {
		return decimal.Decimal{}, false
	}
	return entry.rec.CurrentPrice()
}

// unwatch drops one reference to an auction watch.
func (s *Session) unwatch(auctionID int64) {
	s.mu.Lock()
	entry, ok := s.watches[auctionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.watches, auctionID)
	s.mu.Unlock()

	if entry.handle != nil {
		entry.handle.Release()
	}
	s.logger.Debug("stopped watching auction", "auction_id", auctionID)
}

// updateSink feeds registry dispatch into the reconciler and correlates
// applied events with pending bids.
type updateSink struct {
	session *Session
	rec     *reconcile.Reconciler
}

func (u *updateSink) Apply(update model.AuctionUpdate) {
	verdict := u.rec.ApplyUpdate(update)
	if verdict == reconcile.VerdictApplied && update.LatestBid != nil {
		u.session.sub.Observe(update.LatestBid.Event(update.AuctionID))
	}
}

// Watch is one reference to a live-synced auction.
type Watch struct {
	session   *Session
	auctionID int64
	rec       *reconcile.Reconciler
	once      sync.Once
}

// AuctionID returns the watched auction's identifier.
func (w *Watch) AuctionID() int64 {
	return w.auctionID
}

// Reconciler exposes the auction's reconciled state and change stream.
func (w *Watch) Reconciler() *reconcile.Reconciler {
	return w.rec
}

// Close releases this reference. The topic subscription is torn down
// when the last watcher closes; in-flight dispatch for it is discarded.
func (w *Watch) Close() {
	w.once.Do(func() {
		w.session.unwatch(w.auctionID)
	})
}
