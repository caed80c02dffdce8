// auctionwatch follows one live auction from the terminal: it prints
// reconciled state changes, connection status, and outbid alerts, and can
// optionally place a bid.
//
// Usage:
//
//	auctionwatch --config configs/auctionwatch.yaml --auction 42 [--bid 110.00]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/config"
	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
	"github.com/Chakradhar-Malage/auctionsync/internal/session"
	"github.com/Chakradhar-Malage/auctionsync/internal/version"
	"github.com/Chakradhar-Malage/auctionsync/internal/view"
)

// consoleBinder prints reconciled state to stdout.
type consoleBinder struct{}

func (consoleBinder) BindState(st model.ReconciledAuctionState) {
	fmt.Printf("[%s] %s: current price %s (%d bids observed)\n",
		time.Now().Format("15:04:05"),
		st.Item.Title,
		st.CurrentPrice.String(),
		len(st.BidLog),
	)
	if n := len(st.BidLog); n > 0 {
		last := st.BidLog[n-1]
		fmt.Printf("    latest: %s by %s at %s\n",
			last.Amount.String(), last.Bidder, last.BidTime.Format(time.RFC3339))
	}
}

func (consoleBinder) BindConnection(ev connection.StateEvent) {
	if ev.Cause != "" {
		fmt.Printf("[%s] connection: %s (%s)\n", time.Now().Format("15:04:05"), ev.State, ev.Cause)
		return
	}
	fmt.Printf("[%s] connection: %s\n", time.Now().Format("15:04:05"), ev.State)
}

func main() {
	configPath := flag.String("config", "configs/auctionwatch.yaml", "path to config file")
	auctionID := flag.Int64("auction", 0, "auction ID to watch")
	bidAmount := flag.String("bid", "", "optional bid amount to place once connected")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *auctionID == 0 {
		logger.Error("missing required --auction flag")
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	sess := session.New(*cfg, logger)
	if err := sess.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	watch, err := sess.Watch(ctx, *auctionID)
	if err != nil {
		logger.Error("failed to watch auction", "auction_id", *auctionID, "error", err)
		sess.Stop(context.Background())
		os.Exit(1)
	}
	defer watch.Close()

	notifHandle := sess.Notifications(func(alert model.OutbidAlert) {
		fmt.Printf("*** outbid: %s bid %s on %s\n",
			alert.NewBidder, alert.NewAmount.String(), alert.AuctionTitle)
	})
	defer notifHandle.Release()

	v := view.New(watch.Reconciler(), sess.ConnStates(), consoleBinder{}, logger)
	if err := v.Start(ctx); err != nil {
		logger.Error("failed to start view", "error", err)
		os.Exit(1)
	}

	if *bidAmount != "" {
		go placeBid(ctx, sess, *auctionID, *bidAmount, logger)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	v.Stop(shutdownCtx)
	watch.Close()
	if err := sess.Stop(shutdownCtx); err != nil {
		logger.Warn("session shutdown incomplete", "error", err)
	}
}

// placeBid submits one bid and reports its final outcome.
func placeBid(ctx context.Context, sess *session.Session, auctionID int64, raw string, logger *slog.Logger) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Error("invalid bid amount", "amount", raw, "error", err)
		return
	}

	pending, err := sess.Submit(ctx, auctionID, amount)
	if err != nil {
		logger.Error("bid rejected locally", "error", err)
		return
	}

	select {
	case <-ctx.Done():
	case res := <-pending.Done():
		if res.Err != nil {
			logger.Warn("bid outcome", "status", res.Status.String(), "error", res.Err)
			return
		}
		logger.Info("bid outcome", "status", res.Status.String(), "amount", amount.String())
	}
}
