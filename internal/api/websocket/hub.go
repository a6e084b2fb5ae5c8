package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	domauction "github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// ConnectionObserver is notified when clients join and leave the hub
type ConnectionObserver interface {
	WSConnected()
	WSDisconnected()
}

type nopObserver struct{}

func (nopObserver) WSConnected()    {}
func (nopObserver) WSDisconnected() {}

// Hub fans auction events out to subscribed clients. It implements the
// engine's Notifier, so admissions broadcast without the engine knowing
// about websockets.
type Hub struct {
	logger   *zap.Logger
	observer ConnectionObserver

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	done       chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		observer:   nopObserver{},
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 256),
		done:       make(chan struct{}),
	}
}

// SetObserver wires connection gauges. Must be called before Run.
func (h *Hub) SetObserver(o ConnectionObserver) {
	if o != nil {
		h.observer = o
	}
}

// Run owns the client set until the context is cancelled
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-h.done:
			h.shutdown()
			return
		case client := <-h.register:
			h.clients[client] = true
			h.observer.WSConnected()
			h.logger.Debug("websocket client registered",
				zap.String("client_id", client.id.String()))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.observer.WSDisconnected()
			}
		case event := <-h.broadcast:
			h.dispatch(event)
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// Stop terminates the run loop
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) dispatch(event *Event) {
	for client := range h.clients {
		if !client.subscribedTo(event.AuctionID) {
			continue
		}
		select {
		case client.send <- event:
		default:
			// Slow consumer: drop it rather than stall the broadcast
			delete(h.clients, client)
			close(client.send)
			h.observer.WSDisconnected()
			h.logger.Warn("dropped slow websocket client",
				zap.String("client_id", client.id.String()))
		}
	}
}

func (h *Hub) pingClients() {
	for client := range h.clients {
		client.ping()
	}
}

func (h *Hub) shutdown() {
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		h.observer.WSDisconnected()
	}
	h.logger.Info("websocket hub stopped")
}

func (h *Hub) publish(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("websocket broadcast buffer full, event dropped",
			zap.String("type", string(event.Type)),
			zap.String("auction_id", event.AuctionID.String()))
	}
}

// Notifier implementation. The context is accepted for interface symmetry;
// broadcasts never block the admission path.

func (h *Hub) NotifyBidPlaced(_ context.Context, b *bid.Bid, rank, totalBids int) {
	h.publishBidEvent(EventBidPlaced, b, rank, totalBids)
}

func (h *Hub) NotifyBidUpdated(_ context.Context, b *bid.Bid, rank, totalBids int) {
	h.publishBidEvent(EventBidUpdated, b, rank, totalBids)
}

func (h *Hub) NotifyBidWithdrawn(_ context.Context, b *bid.Bid) {
	h.publishBidEvent(EventBidWithdrawn, b, 0, 0)
}

func (h *Hub) NotifyBidRejected(_ context.Context, b *bid.Bid) {
	h.publishBidEvent(EventBidRejected, b, 0, 0)
}

func (h *Hub) NotifyAuctionStatus(_ context.Context, a *domauction.Auction) {
	h.publish(&Event{
		Type:      EventAuctionStatus,
		AuctionID: a.ID,
		Timestamp: time.Now().UTC(),
		Data:      statusData(a),
	})
}

func (h *Hub) NotifyWinnerResolved(_ context.Context, a *domauction.Auction) {
	h.publish(&Event{
		Type:      EventWinnerResolved,
		AuctionID: a.ID,
		Timestamp: time.Now().UTC(),
		Data:      statusData(a),
	})
}

func (h *Hub) publishBidEvent(eventType EventType, b *bid.Bid, rank, totalBids int) {
	h.publish(&Event{
		Type:      eventType,
		AuctionID: b.AuctionID,
		Timestamp: time.Now().UTC(),
		Data: BidEventData{
			Bid:       rankedBidPayload(b, rank, totalBids),
			Rank:      rank,
			TotalBids: totalBids,
		},
	})
}

func rankedBidPayload(b *bid.Bid, rank, totalBids int) auction.RankedBid {
	return auction.RankedBid{
		ID:            b.ID,
		AuctionID:     b.AuctionID,
		ProjectID:     b.ProjectID,
		BidderID:      b.BidderID,
		BidderName:    b.BidderName,
		ProposedPrice: b.ProposedPrice,
		EstimatedDays: b.EstimatedDays,
		Proposal:      b.Proposal,
		Status:        b.Status.String(),
		SubmittedAt:   b.SubmittedAt,
		UpdatedAt:     b.UpdatedAt,
		Rank:          rank,
		TotalBids:     totalBids,
	}
}

func statusData(a *domauction.Auction) StatusEventData {
	data := StatusEventData{
		Status:   a.Status.String(),
		WinnerID: a.WinnerOrganizationID,
	}
	if a.WinningBidAmount != nil {
		data.WinningBidAmount = a.WinningBidAmount.String()
	}
	return data
}

var _ auction.Notifier = (*Hub)(nil)
