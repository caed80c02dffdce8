package reconcile

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/model"
)

// Verdict is the outcome of applying one update.
type Verdict int

const (
	// VerdictApplied means the event was inserted into the bid log.
	VerdictApplied Verdict = iota
	// VerdictDuplicate means the event was already present (redelivery)
	// or was a self-update of the current high bid.
	VerdictDuplicate
	// VerdictBuffered means the snapshot has not landed yet; the update
	// is held and replayed after Initialize.
	VerdictBuffered
	// VerdictDropped means the update carried no bid delta.
	VerdictDropped
)

// String returns the lowercase verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictApplied:
		return "applied"
	case VerdictDuplicate:
		return "duplicate"
	case VerdictBuffered:
		return "buffered"
	case VerdictDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Reconciler owns the authoritative view of one auction's state.
// ApplyUpdate and CurrentState are safe for concurrent use; mutation is
// serialized per auction, never behind a global lock.
type Reconciler struct {
	auctionID int64
	logger    *slog.Logger

	mu          sync.Mutex
	initialized bool
	snapshot    model.AuctionSnapshot
	price       decimal.Decimal
	highBidder  string
	log         []model.BidEvent
	seen        map[string]struct{}
	pending     []model.AuctionUpdate
	nextSeq     int64

	changes chan model.ReconciledAuctionState
}

// New creates a Reconciler for one auction. Initialize must be called
// with the fetched snapshot before CurrentState returns anything useful.
func New(auctionID int64, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		auctionID: auctionID,
		logger:    logger.With("auction_id", auctionID),
		seen:      make(map[string]struct{}),
		changes:   make(chan model.ReconciledAuctionState, 16),
	}
}

// Initialize seeds state from the snapshot and replays any updates that
// arrived before the snapshot fetch completed, preserving arrival order.
func (r *Reconciler) Initialize(snap model.AuctionSnapshot) {
	r.mu.Lock()
	r.snapshot = snap
	r.price = snap.CurrentPrice
	r.initialized = true

	buffered := r.pending
	r.pending = nil

	applied := 0
	for _, u := range buffered {
		if r.applyLocked(u) == VerdictApplied {
			applied++
		}
	}
	st := r.stateLocked()
	r.mu.Unlock()

	r.logger.Debug("snapshot initialized",
		"price", snap.CurrentPrice.String(),
		"replayed", len(buffered),
		"applied", applied,
	)
	r.notify(st)
}

// ApplyUpdate merges one incoming update into the reconciled state and
// reports what happened to it. Duplicates never change the bid log.
func (r *Reconciler) ApplyUpdate(u model.AuctionUpdate) Verdict {
	r.mu.Lock()
	if !r.initialized {
		r.pending = append(r.pending, u)
		r.mu.Unlock()
		return VerdictBuffered
	}

	verdict := r.applyLocked(u)
	var st model.ReconciledAuctionState
	if verdict == VerdictApplied {
		st = r.stateLocked()
	}
	r.mu.Unlock()

	if verdict == VerdictApplied {
		r.notify(st)
	}
	return verdict
}

// applyLocked inserts one update. Caller holds r.mu.
func (r *Reconciler) applyLocked(u model.AuctionUpdate) Verdict {
	if u.LatestBid == nil {
		// Price-only envelope: the embedded price is a hint, not
		// authoritative. Nothing to record.
		return VerdictDropped
	}

	ev := u.LatestBid.Event(r.auctionID)
	key := ev.DedupKey()

	if _, dup := r.seen[key]; dup {
		return VerdictDuplicate
	}

	// An equal-amount bid from the current high bidder is a self-update,
	// not a valid tie.
	if ev.Amount.Equal(r.price) && ev.Bidder == r.highBidder {
		r.seen[key] = struct{}{}
		return VerdictDuplicate
	}

	ev.Seq = r.nextSeq
	r.nextSeq++
	r.seen[key] = struct{}{}

	// Insert ordered by (BidTime, arrival seq): equal bid times keep
	// arrival order because seq grows with arrival.
	idx := sort.Search(len(r.log), func(i int) bool {
		return r.log[i].BidTime.After(ev.BidTime)
	})
	r.log = append(r.log, model.BidEvent{})
	copy(r.log[idx+1:], r.log[idx:])
	r.log[idx] = ev

	if ev.Amount.GreaterThan(r.price) {
		r.price = ev.Amount
		r.highBidder = ev.Bidder
	}

	return VerdictApplied
}

// CurrentState returns a copy of the reconciled state.
func (r *Reconciler) CurrentState() model.ReconciledAuctionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// CurrentPrice returns the reconciled price. ok is false until the
// snapshot has been initialized.
func (r *Reconciler) CurrentPrice() (decimal.Decimal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.price, r.initialized
}

// Changes returns the state-change notification stream. The channel is
// latest-wins: a slow consumer sees the newest state, not every step.
func (r *Reconciler) Changes() <-chan model.ReconciledAuctionState {
	return r.changes
}

func (r *Reconciler) stateLocked() model.ReconciledAuctionState {
	log := make([]model.BidEvent, len(r.log))
	copy(log, r.log)
	return model.ReconciledAuctionState{
		AuctionID:    r.auctionID,
		CurrentPrice: r.price,
		EndTime:      r.snapshot.EndTime,
		Item:         r.snapshot.Item,
		BidLog:       log,
	}
}

// notify pushes the new state, evicting the stale one if the consumer
// has fallen behind.
func (r *Reconciler) notify(st model.ReconciledAuctionState) {
	select {
	case r.changes <- st:
		return
	default:
	}
	select {
	case <-r.changes:
	default:
	}
	select {
	case r.changes <- st:
	default:
	}
}
