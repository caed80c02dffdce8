package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBidIncrement is the minimum step above the current price for the
// next bid. The server enforces the real increment; this is the client hint.
var DefaultBidIncrement = decimal.NewFromInt(1)

// ItemInfo holds the display metadata of the item under auction.
type ItemInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AuctionSnapshot is the point-in-time auction state fetched over REST
// before streaming begins. Immutable once captured except for the fields
// reconciliation overwrites (CurrentPrice and bid-derived metadata).
type AuctionSnapshot struct {
	AuctionID    int64
	CurrentPrice decimal.Decimal
	EndTime      time.Time
	Item         ItemInfo
}

// BidEvent is a single observed bid. Immutable. Within one auction, events
// are totally ordered by (BidTime, Seq): BidTime is authoritative, Seq is
// the local arrival sequence used as tiebreak.
type BidEvent struct {
	AuctionID int64
	Amount    decimal.Decimal
	Bidder    string
	BidTime   time.Time
	Seq       int64 // Assigned locally on first acceptance
}

// DedupKey identifies a unique bid event regardless of how many times the
// channel redelivers it.
func (e BidEvent) DedupKey() string {
	return e.Bidder + "|" + e.BidTime.UTC().Format(time.RFC3339Nano) + "|" + e.Amount.String()
}

// AuctionUpdate is the parsed push-channel envelope for one auction. The
// embedded CurrentPrice is a hint only; the reconciler recomputes the price
// locally from accepted bid events.
type AuctionUpdate struct {
	AuctionID    int64
	CurrentPrice decimal.Decimal
	LatestBid    *BidUpdate
}

// BidUpdate is the delta carried inside an AuctionUpdate.
type BidUpdate struct {
	Amount  decimal.Decimal
	Bidder  string
	BidTime time.Time
}

// Event converts the delta into a BidEvent for the given auction.
// Seq is assigned by the reconciler on acceptance.
func (b BidUpdate) Event(auctionID int64) BidEvent {
	return BidEvent{
		AuctionID: auctionID,
		Amount:    b.Amount,
		Bidder:    b.Bidder,
		BidTime:   b.BidTime,
	}
}

// ReconciledAuctionState is the derived authoritative view of one auction:
// snapshot fields plus the monotonic current price and the ordered,
// deduplicated bid log.
type ReconciledAuctionState struct {
	AuctionID    int64
	CurrentPrice decimal.Decimal
	EndTime      time.Time
	Item         ItemInfo
	BidLog       []BidEvent
}

// MinNextBid returns the smallest amount a local bid must reach.
func (s ReconciledAuctionState) MinNextBid() decimal.Decimal {
	return s.CurrentPrice.Add(DefaultBidIncrement)
}

// OutbidAlert is an out-of-band notification from the user's private queue.
// It is delivered to a callback, never merged into any auction's bid log.
type OutbidAlert struct {
	NewBidder    string
	NewAmount    decimal.Decimal
	AuctionTitle string
}
