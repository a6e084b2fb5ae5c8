package auction

import (
	"sort"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
)

// rankedBook maintains the ordered set of live (non-withdrawn, non-rejected)
// bids for one auction. Ascending price wins; ties break on earliest
// submission, then on admission order so the ordering is total.
//
// The book is owned by its auction's coordinator entry and is never touched
// without that entry's lock held.
type rankedBook struct {
	ordered []*bookEntry
	byBid   map[uuid.UUID]*bookEntry
	nextSeq uint64
}

type bookEntry struct {
	bid *bid.Bid
	seq uint64 // admission commit order, last tie-break
}

func newRankedBook() *rankedBook {
	return &rankedBook{
		byBid: make(map[uuid.UUID]*bookEntry),
	}
}

func (rb *rankedBook) less(a, b *bookEntry) bool {
	if cmp := a.bid.ProposedPrice.Compare(b.bid.ProposedPrice); cmp != 0 {
		return cmp < 0
	}
	if !a.bid.SubmittedAt.Equal(b.bid.SubmittedAt) {
		return a.bid.SubmittedAt.Before(b.bid.SubmittedAt)
	}
	return a.seq < b.seq
}

// Insert admits a bid into the ranked set and returns its 1-based rank
func (rb *rankedBook) Insert(b *bid.Bid) int {
	entry := &bookEntry{bid: b, seq: rb.nextSeq}
	rb.nextSeq++

	idx := sort.Search(len(rb.ordered), func(i int) bool {
		return rb.less(entry, rb.ordered[i])
	})

	rb.ordered = append(rb.ordered, nil)
	copy(rb.ordered[idx+1:], rb.ordered[idx:])
	rb.ordered[idx] = entry
	rb.byBid[b.ID] = entry

	return idx + 1
}

// Reinsert repositions a bid after a price change and returns its new rank.
// The original admission order is kept for tie-breaking.
func (rb *rankedBook) Reinsert(b *bid.Bid) int {
	entry, ok := rb.byBid[b.ID]
	if !ok {
		return rb.Insert(b)
	}
	seq := entry.seq
	rb.Remove(b.ID)

	entry = &bookEntry{bid: b, seq: seq}
	idx := sort.Search(len(rb.ordered), func(i int) bool {
		return rb.less(entry, rb.ordered[i])
	})

	rb.ordered = append(rb.ordered, nil)
	copy(rb.ordered[idx+1:], rb.ordered[idx:])
	rb.ordered[idx] = entry
	rb.byBid[b.ID] = entry

	return idx + 1
}

// Remove drops a bid from ranking consideration (withdrawal or rejection)
func (rb *rankedBook) Remove(bidID uuid.UUID) {
	entry, ok := rb.byBid[bidID]
	if !ok {
		return
	}
	delete(rb.byBid, bidID)

	for i, e := range rb.ordered {
		if e == entry {
			rb.ordered = append(rb.ordered[:i], rb.ordered[i+1:]...)
			return
		}
	}
}

// Leader returns the lowest-priced live bid, or nil if none exist
func (rb *rankedBook) Leader() *bid.Bid {
	if len(rb.ordered) == 0 {
		return nil
	}
	return rb.ordered[0].bid
}

// RankOf returns the 1-based rank of a bid, or 0 if it is not in the book
func (rb *rankedBook) RankOf(bidID uuid.UUID) int {
	entry, ok := rb.byBid[bidID]
	if !ok {
		return 0
	}
	for i, e := range rb.ordered {
		if e == entry {
			return i + 1
		}
	}
	return 0
}

// HasLiveBidFrom reports whether the bidder already holds a bid in the book
func (rb *rankedBook) HasLiveBidFrom(bidderID uuid.UUID) bool {
	for _, e := range rb.ordered {
		if e.bid.BidderID == bidderID {
			return true
		}
	}
	return false
}

// Ranked returns the bids in rank order. The slice is fresh; the bids are shared.
func (rb *rankedBook) Ranked() []*bid.Bid {
	out := make([]*bid.Bid, len(rb.ordered))
	for i, e := range rb.ordered {
		out[i] = e.bid
	}
	return out
}

// Size returns the number of live bids
func (rb *rankedBook) Size() int {
	return len(rb.ordered)
}
