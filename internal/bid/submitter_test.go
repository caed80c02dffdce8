package bid

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/api"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
)

type fakePlacer struct {
	calls atomic.Int32
	fn    func(ctx context.Context, auctionID int64, amount decimal.Decimal) error
}

func (f *fakePlacer) PlaceBid(ctx context.Context, auctionID int64, amount decimal.Decimal) error {
	f.calls.Add(1)
	if f.fn == nil {
		return nil
	}
	return f.fn(ctx, auctionID, amount)
}

type fakePrices struct {
	price decimal.Decimal
	known bool
}

func (f *fakePrices) CurrentPrice(auctionID int64) (decimal.Decimal, bool) {
	return f.price, f.known
}

func prices(s string) *fakePrices {
	return &fakePrices{price: decimal.RequireFromString(s), known: true}
}

func awaitResult(t *testing.T, p *Pending) Result {
	t.Helper()
	select {
	case res := <-p.Done():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("pending bid never resolved")
		return Result{}
	}
}

func TestSubmitter_RejectsBidAtOrBelowCurrentPrice(t *testing.T) {
	placer := &fakePlacer{}
	s := New(Config{Bidder: "alice"}, placer, prices("100.00"), nil, nil)

	tests := []struct {
		name   string
		amount string
	}{
		{"below current price", "90.00"},
		{"equal to current price", "100.00"},
		{"zero", "0"},
		{"negative", "-5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Submit(context.Background(), 1, decimal.RequireFromString(tt.amount))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
		})
	}

	if got := placer.calls.Load(); got != 0 {
		t.Errorf("placer called %d times, want 0 (validation must fail before any request)", got)
	}
}

func TestSubmitter_AcceptedOnServerResponse(t *testing.T) {
	placer := &fakePlacer{}
	s := New(Config{Bidder: "alice"}, placer, prices("100.00"), nil, nil)

	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := awaitResult(t, p)
	if res.Status != StatusAccepted {
		t.Errorf("Status = %v, want accepted", res.Status)
	}
	if s.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", s.PendingCount())
	}
}

func TestSubmitter_FailedOnServerRejection(t *testing.T) {
	placer := &fakePlacer{
		fn: func(context.Context, int64, decimal.Decimal) error {
			return &api.APIError{StatusCode: 400, Message: "bid too low"}
		},
	}
	s := New(Config{Bidder: "alice"}, placer, prices("100.00"), nil, nil)

	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := awaitResult(t, p)
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	var apiErr *api.APIError
	if !errors.As(res.Err, &apiErr) {
		t.Errorf("Err = %v, want *APIError", res.Err)
	}
}

func TestSubmitter_ConfirmedByReconciledEvent(t *testing.T) {
	block := make(chan struct{})
	placer := &fakePlacer{
		fn: func(ctx context.Context, _ int64, _ decimal.Decimal) error {
			<-block // response never arrives first
			return nil
		},
	}
	defer close(block)

	s := New(Config{Bidder: "alice"}, placer, prices("100.00"), nil, nil)

	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Someone else's identical amount must not confirm our bid.
	s.Observe(model.BidEvent{
		AuctionID: 1,
		Amount:    decimal.RequireFromString("110.00"),
		Bidder:    "bob",
		BidTime:   time.Now(),
	})
	if s.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d after foreign event, want 1", s.PendingCount())
	}

	// Our own bid arriving on the push channel resolves it.
	s.Observe(model.BidEvent{
		AuctionID: 1,
		Amount:    decimal.RequireFromString("110.00"),
		Bidder:    "alice",
		BidTime:   time.Now(),
	})

	res := awaitResult(t, p)
	if res.Status != StatusConfirmed {
		t.Errorf("Status = %v, want confirmed", res.Status)
	}
}

func TestSubmitter_IndeterminateOnTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()

	block := make(chan struct{})
	placer := &fakePlacer{
		fn: func(ctx context.Context, _ int64, _ decimal.Decimal) error {
			<-block // no response, and no push event either
			return context.Canceled
		},
	}
	defer close(block)

	s := New(Config{Bidder: "alice", SubmitTimeout: 15 * time.Second}, placer, prices("100.00"), clock, nil)

	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Wait until the timeout watcher is parked on the fake clock.
	clock.BlockUntil(1)
	clock.Advance(15 * time.Second)

	res := awaitResult(t, p)
	if res.Status != StatusIndeterminate {
		t.Errorf("Status = %v, want indeterminate (never a guaranteed failure)", res.Status)
	}
}

func TestSubmitter_TransportErrorIsNotFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()

	placer := &fakePlacer{
		fn: func(context.Context, int64, decimal.Decimal) error {
			return errors.New("connection reset") // no server verdict
		},
	}

	s := New(Config{Bidder: "alice", SubmitTimeout: 15 * time.Second}, placer, prices("100.00"), clock, nil)

	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The bid may still have been accepted: a matching event confirms it.
	s.Observe(model.BidEvent{
		AuctionID: 1,
		Amount:    decimal.RequireFromString("110.00"),
		Bidder:    "alice",
		BidTime:   time.Now(),
	})

	res := awaitResult(t, p)
	if res.Status != StatusConfirmed {
		t.Errorf("Status = %v, want confirmed", res.Status)
	}
}

func TestSubmitter_UnknownPriceStillSubmits(t *testing.T) {
	placer := &fakePlacer{}
	s := New(Config{Bidder: "alice"}, placer, &fakePrices{known: false}, nil, nil)

	// No snapshot yet: the server stays authoritative, so the bid goes out.
	p, err := s.Submit(context.Background(), 1, decimal.RequireFromString("110.00"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := awaitResult(t, p)
	if res.Status != StatusAccepted {
		t.Errorf("Status = %v, want accepted", res.Status)
	}
}
