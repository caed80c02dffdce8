package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
	"github.com/Chakradhar-Malage/auctionsync/internal/reconcile"
)

type recordingBinder struct {
	mu     sync.Mutex
	states []model.ReconciledAuctionState
	conns  []connection.StateEvent
}

func (b *recordingBinder) BindState(st model.ReconciledAuctionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, st)
}

func (b *recordingBinder) BindConnection(ev connection.StateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns = append(b.conns, ev)
}

func (b *recordingBinder) stateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states)
}

func (b *recordingBinder) connCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func newInitializedReconciler(t *testing.T) *reconcile.Reconciler {
	t.Helper()
	rec := reconcile.New(42, nil)
	rec.Initialize(model.AuctionSnapshot{
		AuctionID:    42,
		CurrentPrice: decimal.RequireFromString("100.00"),
		EndTime:      time.Now().Add(time.Hour),
	})
	// Drain the change notification produced by Initialize so each test
	// starts from a quiet channel.
	select {
	case <-rec.Changes():
	default:
	}
	return rec
}

func TestView_BindsCurrentStateOnStart(t *testing.T) {
	rec := newInitializedReconciler(t)
	binder := &recordingBinder{}
	v := New(rec, make(chan connection.StateEvent), binder, nil)

	ctx := context.Background()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer v.Stop(ctx)

	if got := binder.stateCount(); got < 1 {
		t.Fatalf("BindState calls = %d, want at least 1", got)
	}

	binder.mu.Lock()
	first := binder.states[0]
	binder.mu.Unlock()

	if !first.CurrentPrice.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("initial bound price = %s, want 100.00", first.CurrentPrice)
	}
}

func TestView_DeliversReconcilerChanges(t *testing.T) {
	rec := newInitializedReconciler(t)
	binder := &recordingBinder{}
	v := New(rec, make(chan connection.StateEvent), binder, nil)

	ctx := context.Background()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer v.Stop(ctx)

	verdict := rec.ApplyUpdate(model.AuctionUpdate{
		AuctionID:    42,
		CurrentPrice: decimal.RequireFromString("110.00"),
		LatestBid: &model.BidUpdate{
			Amount:  decimal.RequireFromString("110.00"),
			Bidder:  "bob",
			BidTime: time.Now(),
		},
	})
	if verdict != reconcile.VerdictApplied {
		t.Fatalf("ApplyUpdate verdict = %v, want applied", verdict)
	}

	waitFor(t, func() bool { return binder.stateCount() >= 2 })

	binder.mu.Lock()
	last := binder.states[len(binder.states)-1]
	binder.mu.Unlock()

	if !last.CurrentPrice.Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("bound price = %s, want 110.00", last.CurrentPrice)
	}
	if len(last.BidLog) != 1 {
		t.Errorf("bound bid log length = %d, want 1", len(last.BidLog))
	}
}

func TestView_DeliversConnectionEvents(t *testing.T) {
	rec := newInitializedReconciler(t)
	binder := &recordingBinder{}
	states := make(chan connection.StateEvent, 4)
	v := New(rec, states, binder, nil)

	ctx := context.Background()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer v.Stop(ctx)

	states <- connection.StateEvent{State: connection.StateConnected, At: time.Now()}
	states <- connection.StateEvent{State: connection.StateError, Cause: "read: connection reset", At: time.Now()}

	waitFor(t, func() bool { return binder.connCount() >= 2 })

	binder.mu.Lock()
	defer binder.mu.Unlock()
	if binder.conns[0].State != connection.StateConnected {
		t.Errorf("first event state = %v, want connected", binder.conns[0].State)
	}
	if binder.conns[1].State != connection.StateError {
		t.Errorf("second event state = %v, want error", binder.conns[1].State)
	}
	if binder.conns[1].Cause == "" {
		t.Error("error event should carry a cause")
	}
}

func TestView_StopHaltsDelivery(t *testing.T) {
	rec := newInitializedReconciler(t)
	binder := &recordingBinder{}
	states := make(chan connection.StateEvent, 1)
	v := New(rec, states, binder, nil)

	ctx := context.Background()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := v.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	before := binder.connCount()
	states <- connection.StateEvent{State: connection.StateConnected, At: time.Now()}
	time.Sleep(50 * time.Millisecond)

	if got := binder.connCount(); got != before {
		t.Errorf("events delivered after Stop: %d new", got-before)
	}
}
