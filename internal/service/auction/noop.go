package auction

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
)

// NopNotifier discards all events. Used in tests and in deployments that
// run without the websocket hub.
type NopNotifier struct{}

func (NopNotifier) NotifyBidPlaced(context.Context, *bid.Bid, int, int)    {}
func (NopNotifier) NotifyBidUpdated(context.Context, *bid.Bid, int, int)   {}
func (NopNotifier) NotifyBidWithdrawn(context.Context, *bid.Bid)           {}
func (NopNotifier) NotifyBidRejected(context.Context, *bid.Bid)            {}
func (NopNotifier) NotifyAuctionStatus(context.Context, *auction.Auction)  {}
func (NopNotifier) NotifyWinnerResolved(context.Context, *auction.Auction) {}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) RecordBidAdmitted(uuid.UUID)      {}
func (NopMetrics) RecordBidRejected(string)         {}
func (NopMetrics) RecordAuctionResolved(bool)       {}
func (NopMetrics) ObserveAdmissionLatency(float64)  {}
