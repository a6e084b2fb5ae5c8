package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// ErrOwnBidMissing reports that a bid the caller believed it had submitted is
// absent from the authoritative snapshot. The submission must be treated as
// failed, not as still in flight.
var ErrOwnBidMissing = errors.NewConflictError("BID_NOT_IN_SNAPSHOT",
	"submitted bid is absent from the authoritative snapshot")

// Reconciliation is the result of replacing optimistic local state with the
// server's snapshot.
type Reconciliation struct {
	State  *auction.LiveState
	OwnBid *auction.RankedBid
}

// Reconcile fetches the authoritative snapshot and locates the caller's own
// bid within it. Called after any mutating request with an unknown outcome
// (transport failure, timeout) and on reconnect. The snapshot's ranking and
// status win over anything held locally; if ownBidID is set and the snapshot
// does not contain it, Reconcile returns ErrOwnBidMissing alongside the
// snapshot so the caller can both surface the failure and render fresh state.
func Reconcile(ctx context.Context, svc AuctionService, auctionID, ownBidID uuid.UUID) (*Reconciliation, error) {
	state, err := svc.GetLiveState(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{State: state}
	if ownBidID == uuid.Nil {
		return rec, nil
	}

	for i := range state.Bids {
		if state.Bids[i].ID == ownBidID {
			rec.OwnBid = &state.Bids[i]
			return rec, nil
		}
	}
	return rec, ErrOwnBidMissing
}
