package registry

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/connection"
	"github.com/Chakradhar-Malage/auctionsync/internal/model"
)

// NotificationsTopic is the private per-user queue. The server resolves
// the user from the connection's bearer token.
const NotificationsTopic = "user/queue/notifications"

// AuctionTopic returns the push-channel topic for one auction.
func AuctionTopic(auctionID int64) string {
	return fmt.Sprintf("auction/%d", auctionID)
}

// Channel is the registry's view of the push-channel connection.
// *connection.Conn satisfies it.
type Channel interface {
	States() <-chan connection.StateEvent
	Messages() <-chan connection.Message
	SendCommand(connection.Command) error
}

// UpdateSink receives parsed auction updates for one auction.
type UpdateSink interface {
	Apply(model.AuctionUpdate)
}

// AlertFunc receives out-of-band outbid alerts from the private queue.
type AlertFunc func(model.OutbidAlert)

// auctionUpdateWire is the wire format of an auction topic payload.
type auctionUpdateWire struct {
	AuctionID    int64          `json:"auctionId"`
	CurrentPrice string         `json:"currentPrice"`
	LatestBid    *bidUpdateWire `json:"latestBid,omitempty"`
}

type bidUpdateWire struct {
	Amount         string `json:"amount"`
	BidderUsername string `json:"bidderUsername"`
	BidTime        string `json:"bidTime"`
}

// alertWire is the wire format of a notification queue payload.
type alertWire struct {
	NewBidderUsername string `json:"newBidderUsername"`
	NewAmount         string `json:"newAmount"`
	AuctionTitle      string `json:"auctionTitle"`
}

func (w auctionUpdateWire) toModel() (model.AuctionUpdate, error) {
	price, err := decimal.NewFromString(w.CurrentPrice)
	if err != nil {
		return model.AuctionUpdate{}, fmt.Errorf("parse currentPrice %q: %w", w.CurrentPrice, err)
	}

	u := model.AuctionUpdate{
		AuctionID:    w.AuctionID,
		CurrentPrice: price,
	}

	if w.LatestBid != nil {
		amount, err := decimal.NewFromString(w.LatestBid.Amount)
		if err != nil {
			return model.AuctionUpdate{}, fmt.Errorf("parse bid amount %q: %w", w.LatestBid.Amount, err)
		}
		bidTime, err := time.Parse(time.RFC3339, w.LatestBid.BidTime)
		if err != nil {
			return model.AuctionUpdate{}, fmt.Errorf("parse bidTime %q: %w", w.LatestBid.BidTime, err)
		}
		u.LatestBid = &model.BidUpdate{
			Amount:  amount,
			Bidder:  w.LatestBid.BidderUsername,
			BidTime: bidTime,
		}
	}

	return u, nil
}

func (w alertWire) toModel() (model.OutbidAlert, error) {
	amount, err := decimal.NewFromString(w.NewAmount)
	if err != nil {
		return model.OutbidAlert{}, fmt.Errorf("parse newAmount %q: %w", w.NewAmount, err)
	}
	return model.OutbidAlert{
		NewBidder:    w.NewBidderUsername,
		NewAmount:    amount,
		AuctionTitle: w.AuctionTitle,
	}, nil
}
