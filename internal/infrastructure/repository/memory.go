package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
)

// In-memory repositories backing tests and the local (mock-backend) mode.
// They satisfy the same interfaces as the Postgres implementations, so the
// engine and REST layer are indifferent to which one is wired in.

// MemoryProjectRepository stores projects in a map
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]project.Project
}

func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{projects: make(map[uuid.UUID]project.Project)}
}

func (r *MemoryProjectRepository) Create(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = *p
	return nil
}

func (r *MemoryProjectRepository) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, errors.ErrProjectNotFound
	}
	copied := p
	return &copied, nil
}

func (r *MemoryProjectRepository) Update(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return errors.ErrProjectNotFound
	}
	r.projects[p.ID] = *p
	return nil
}

// MemoryAuctionRepository stores auctions in a map
type MemoryAuctionRepository struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]auction.Auction
}

func NewMemoryAuctionRepository() *MemoryAuctionRepository {
	return &MemoryAuctionRepository{auctions: make(map[uuid.UUID]auction.Auction)}
}

func (r *MemoryAuctionRepository) Create(_ context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[a.ID] = *a
	return nil
}

func (r *MemoryAuctionRepository) GetByID(_ context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, errors.ErrAuctionNotFound
	}
	copied := a
	return &copied, nil
}

func (r *MemoryAuctionRepository) Update(_ context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[a.ID]; !ok {
		return errors.ErrAuctionNotFound
	}
	r.auctions[a.ID] = *a
	return nil
}

func (r *MemoryAuctionRepository) ListLive(_ context.Context) ([]*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*auction.Auction
	for _, a := range r.auctions {
		if a.Status == auction.StatusLive {
			copied := a
			out = append(out, &copied)
		}
	}
	return out, nil
}

// MemoryBidRepository stores bids in a map
type MemoryBidRepository struct {
	mu   sync.RWMutex
	bids map[uuid.UUID]bid.Bid
}

func NewMemoryBidRepository() *MemoryBidRepository {
	return &MemoryBidRepository{bids: make(map[uuid.UUID]bid.Bid)}
}

func (r *MemoryBidRepository) Create(_ context.Context, b *bid.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids[b.ID] = *b
	return nil
}

func (r *MemoryBidRepository) GetByID(_ context.Context, id uuid.UUID) (*bid.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bids[id]
	if !ok {
		return nil, errors.ErrBidNotFound
	}
	copied := b
	return &copied, nil
}

func (r *MemoryBidRepository) Update(_ context.Context, b *bid.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bids[b.ID]; !ok {
		return errors.ErrBidNotFound
	}
	r.bids[b.ID] = *b
	return nil
}

func (r *MemoryBidRepository) ListByAuction(_ context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(b bid.Bid) bool { return b.AuctionID == auctionID }), nil
}

func (r *MemoryBidRepository) ListByAuctionPaged(_ context.Context, auctionID uuid.UUID, offset, limit int) ([]*bid.Bid, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.collect(func(b bid.Bid) bool { return b.AuctionID == auctionID })
	total := len(all)

	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MemoryBidRepository) ListByProject(_ context.Context, projectID uuid.UUID) ([]*bid.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(b bid.Bid) bool { return b.ProjectID == projectID }), nil
}

// collect returns matching bids ordered by submission time. Caller holds the lock.
func (r *MemoryBidRepository) collect(match func(bid.Bid) bool) []*bid.Bid {
	var out []*bid.Bid
	for _, b := range r.bids {
		if match(b) {
			copied := b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
