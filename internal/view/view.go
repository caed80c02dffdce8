package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
	"github.com/Chakradhar-Malage/auctionsync/internal/reconcile"
)

// Binder is the presentation layer's side of the contract. Both methods
// are called from a single goroutine, in event arrival order.
type Binder interface {
	// BindState delivers a new reconciled state, including the full
	// ordered bid log for live-activity feeds.
	BindState(model.ReconciledAuctionState)

	// BindConnection delivers a connection status transition.
	BindConnection(connection.StateEvent)
}

// AuctionView pumps reconciler changes and connection status into a
// Binder for one auction.
type AuctionView struct {
	rec    *reconcile.Reconciler
	states <-chan connection.StateEvent
	binder Binder
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an AuctionView. states typically comes from the registry's
// SubscribeStates.
func New(rec *reconcile.Reconciler, states <-chan connection.StateEvent, binder Binder, logger *slog.Logger) *AuctionView {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuctionView{
		rec:    rec,
		states: states,
		binder: binder,
		logger: logger,
	}
}

// Start begins delivering events to the binder. The current state is
// bound immediately so a late-mounting view is not empty.
func (v *AuctionView) Start(ctx context.Context) error {
	v.ctx, v.cancel = context.WithCancel(ctx)

	v.binder.BindState(v.rec.CurrentState())

	v.wg.Add(1)
	go v.bindLoop()
	return nil
}

// Stop halts delivery. Safe to call more than once.
func (v *AuctionView) Stop(ctx context.Context) error {
	if v.cancel != nil {
		v.cancel()
	}

	done := make(chan struct{})
	go func() {
		v.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *AuctionView) bindLoop() {
	defer v.wg.Done()

	for {
		select {
		case <-v.ctx.Done():
			return

		case st, ok := <-v.rec.Changes():
			if !ok {
				return
			}
			v.binder.BindState(st)

		case ev, ok := <-v.states:
			if !ok {
				return
			}
			v.binder.BindConnection(ev)
		}
	}
}
