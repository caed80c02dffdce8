package bid

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/api"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
)

// Submitter validates, submits, and correlates bids.
type Submitter struct {
	cfg    Config
	placer Placer
	prices PriceSource
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*Pending

	wg sync.WaitGroup
}

// New creates a Submitter. A nil clock means the real clock.
func New(cfg Config, placer Placer, prices PriceSource, clock clockwork.Clock, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg.applyDefaults()

	return &Submitter{
		cfg:     cfg,
		placer:  placer,
		prices:  prices,
		clock:   clock,
		logger:  logger,
		pending: make(map[uuid.UUID]*Pending),
	}
}

// Submit validates amount against the current known price and, if it
// passes, issues the bid request and tracks it until resolution. A
// ValidationError means no request was sent; the authoritative check is
// still server-side.
func (s *Submitter) Submit(ctx context.Context, auctionID int64, amount decimal.Decimal) (*Pending, error) {
	if amount.Sign() <= 0 {
		return nil, &ValidationError{Reason: "amount must be positive"}
	}

	if price, ok := s.prices.CurrentPrice(auctionID); ok && amount.LessThanOrEqual(price) {
		return nil, &ValidationError{
			Reason: "amount " + amount.String() + " is not above current price " + price.String(),
		}
	}

	p := &Pending{
		LocalID:     uuid.New(),
		AuctionID:   auctionID,
		Amount:      amount,
		SubmittedAt: s.clock.Now(),
		done:        make(chan Result, 1),
		resolved:    make(chan struct{}),
	}

	s.mu.Lock()
	s.pending[p.LocalID] = p
	s.mu.Unlock()

	s.logger.Debug("submitting bid",
		"auction_id", auctionID,
		"amount", amount.String(),
		"local_id", p.LocalID,
	)

	s.wg.Add(2)
	go s.request(ctx, p)
	go s.watchTimeout(p)

	return p, nil
}

// Observe feeds an applied bid event back into pending correlation. The
// session calls it for every event the reconciler accepts.
func (s *Submitter) Observe(ev model.BidEvent) {
	if ev.Bidder != s.cfg.Bidder {
		return
	}

	s.mu.Lock()
	var match *Pending
	for _, p := range s.pending {
		if p.AuctionID == ev.AuctionID && p.Amount.Equal(ev.Amount) {
			match = p
			break
		}
	}
	s.mu.Unlock()

	if match != nil {
		s.resolve(match, Result{Status: StatusConfirmed})
	}
}

// PendingCount returns the number of unresolved bids.
func (s *Submitter) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait blocks until all submission goroutines have finished.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

// request issues the REST call and resolves on a definite answer.
func (s *Submitter) request(ctx context.Context, p *Pending) {
	defer s.wg.Done()

	err := s.placer.PlaceBid(ctx, p.AuctionID, p.Amount)
	if err == nil {
		s.resolve(p, Result{Status: StatusAccepted})
		return
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		// The server saw the bid and rejected it.
		s.resolve(p, Result{Status: StatusFailed, Err: err})
		return
	}

	// Transport failure: the request may or may not have reached the
	// server, so this is not a rejection. The push channel or the
	// timeout decides.
	s.logger.Warn("bid request failed in transit",
		"auction_id", p.AuctionID,
		"local_id", p.LocalID,
		"error", err,
	)
}

// watchTimeout resolves the bid as indeterminate if nothing else does.
func (s *Submitter) watchTimeout(p *Pending) {
	defer s.wg.Done()

	select {
	case <-p.resolved:
	case <-s.clock.After(s.cfg.SubmitTimeout):
		s.resolve(p, Result{Status: StatusIndeterminate})
	}
}

// resolve finishes a pending bid exactly once.
func (s *Submitter) resolve(p *Pending, res Result) {
	s.mu.Lock()
	if _, ok := s.pending[p.LocalID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, p.LocalID)
	s.mu.Unlock()

	close(p.resolved)
	p.done <- res

	s.logger.Debug("bid resolved",
		"auction_id", p.AuctionID,
		"local_id", p.LocalID,
		"status", res.Status.String(),
	)
}
