package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chakradhar-Malage/auctionsync/internal/model"
)

// auctionWire is the backend's auction snapshot shape. Price fields are
// decimal-precise strings, never floats.
type auctionWire struct {
	AuctionID    int64  `json:"auctionId"`
	CurrentPrice string `json:"currentPrice"`
	EndTime      string `json:"endTime"`
	Item         struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"item"`
}

func (w auctionWire) toModel() (model.AuctionSnapshot, error) {
	price, err := decimal.NewFromString(w.CurrentPrice)
	if err != nil {
		return model.AuctionSnapshot{}, fmt.Errorf("parse currentPrice %q: %w", w.CurrentPrice, err)
	}
	endTime, err := time.Parse(time.RFC3339, w.EndTime)
	if err != nil {
		return model.AuctionSnapshot{}, fmt.Errorf("parse endTime %q: %w", w.EndTime, err)
	}
	return model.AuctionSnapshot{
		AuctionID:    w.AuctionID,
		CurrentPrice: price,
		EndTime:      endTime,
		Item: model.ItemInfo{
			Title:       w.Item.Title,
			Description: w.Item.Description,
		},
	}, nil
}

// GetAuction fetches the current snapshot of one auction.
func (c *Client) GetAuction(ctx context.Context, auctionID int64) (model.AuctionSnapshot, error) {
	var wire auctionWire
	path := fmt.Sprintf("/api/auctions/%d", auctionID)
	if err := c.get(ctx, path, &wire); err != nil {
		return model.AuctionSnapshot{}, fmt.Errorf("get auction %d: %w", auctionID, err)
	}
	return wire.toModel()
}

// bidRequest is the bid submission body.
type bidRequest struct {
	Amount string `json:"amount"`
}

// PlaceBid submits a bid. The request is issued exactly once: a rejected
// or timed-out submission is never auto-retried, because the bid may
// still have been accepted server-side.
func (c *Client) PlaceBid(ctx context.Context, auctionID int64, amount decimal.Decimal) error {
	body, err := json.Marshal(bidRequest{Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("marshal bid: %w", err)
	}

	path := fmt.Sprintf("/api/auctions/%d/bid", auctionID)
	if _, err := c.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("place bid on auction %d: %w", auctionID, err)
	}
	return nil
}
