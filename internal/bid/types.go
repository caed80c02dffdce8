package bid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the resolution state of a submitted bid.
type Status int

const (
	// StatusPending means no confirming or rejecting signal yet.
	StatusPending Status = iota
	// StatusAccepted means the REST response reported success.
	StatusAccepted
	// StatusConfirmed means a matching bid event was reconciled from
	// the push channel.
	StatusConfirmed
	// StatusFailed means the server rejected the bid.
	StatusFailed
	// StatusIndeterminate means no signal arrived within the timeout.
	// The bid may still have been accepted.
	StatusIndeterminate
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Result is the final outcome of one submission. Err is set only for
// StatusFailed.
type Result struct {
	Status Status
	Err    error
}

// Pending tracks one in-flight bid until a resolving signal arrives.
type Pending struct {
	LocalID     uuid.UUID
	AuctionID   int64
	Amount      decimal.Decimal
	SubmittedAt time.Time

	done     chan Result
	resolved chan struct{}
}

// Done delivers the final Result exactly once.
func (p *Pending) Done() <-chan Result {
	return p.done
}

// ValidationError reports a client-side precondition failure. No request
// was sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid bid: " + e.Reason
}

// Placer issues the bid request. *api.Client satisfies it.
type Placer interface {
	PlaceBid(ctx context.Context, auctionID int64, amount decimal.Decimal) error
}

// PriceSource reports the current reconciled price for an auction.
// ok is false when no snapshot has been reconciled yet.
type PriceSource interface {
	CurrentPrice(auctionID int64) (price decimal.Decimal, ok bool)
}

// Config configures a Submitter.
type Config struct {
	Bidder        string        // Local user's bidder username
	SubmitTimeout time.Duration // Window before a pending bid goes indeterminate
}

// DefaultSubmitTimeout bounds how long a bid stays pending without any
// confirming signal.
const DefaultSubmitTimeout = 15 * time.Second

func (c *Config) applyDefaults() {
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
}
