// Package websocket pushes auction events to subscribed clients. Delivery is
// best-effort; the authoritative snapshot is always the live-state endpoint,
// so a dropped event never corrupts a client that reconciles.
package websocket

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/service/auction"
)

// EventType identifies an auction event on the wire
type EventType string

const (
	EventBidPlaced      EventType = "bid_placed"
	EventBidUpdated     EventType = "bid_updated"
	EventBidWithdrawn   EventType = "bid_withdrawn"
	EventBidRejected    EventType = "bid_rejected"
	EventAuctionStatus  EventType = "auction_status"
	EventWinnerResolved EventType = "winner_resolved"
)

// Event is the envelope every subscriber receives
type Event struct {
	Type      EventType   `json:"type"`
	AuctionID uuid.UUID   `json:"auction_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BidEventData carries the bid payload plus its computed position
type BidEventData struct {
	Bid       auction.RankedBid `json:"bid"`
	Rank      int               `json:"rank,omitempty"`
	TotalBids int               `json:"total_bids,omitempty"`
}

// StatusEventData carries a lifecycle transition
type StatusEventData struct {
	Status           string     `json:"status"`
	WinnerID         *uuid.UUID `json:"winner_organization_id,omitempty"`
	WinningBidAmount string     `json:"winning_bid_amount,omitempty"`
}
