// Package fixtures provides builders for test entities. Builders carry
// sensible defaults so tests only state what they care about.
package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// ProjectBuilder builds test Project entities
type ProjectBuilder struct {
	ownerID  uuid.UUID
	title    string
	category string
	budget   values.BudgetRange
	deadline time.Time
	mode     project.BiddingMode
}

// NewProjectBuilder creates a builder with a live-auction project by default
func NewProjectBuilder() *ProjectBuilder {
	return &ProjectBuilder{
		ownerID:  uuid.New(),
		title:    "Office renovation",
		category: "construction",
		budget: values.MustNewBudgetRange(
			values.MustNewMoneyFromFloat(5000, values.USD),
			values.MustNewMoneyFromFloat(10000, values.USD),
		),
		deadline: time.Now().UTC().Add(72 * time.Hour),
		mode:     project.ModeLiveAuction,
	}
}

func (pb *ProjectBuilder) WithOwnerID(id uuid.UUID) *ProjectBuilder {
	pb.ownerID = id
	return pb
}

func (pb *ProjectBuilder) WithBudget(min, max float64) *ProjectBuilder {
	pb.budget = values.MustNewBudgetRange(
		values.MustNewMoneyFromFloat(min, values.USD),
		values.MustNewMoneyFromFloat(max, values.USD),
	)
	return pb
}

func (pb *ProjectBuilder) WithDeadline(deadline time.Time) *ProjectBuilder {
	pb.deadline = deadline
	return pb
}

func (pb *ProjectBuilder) WithMode(mode project.BiddingMode) *ProjectBuilder {
	pb.mode = mode
	return pb
}

func (pb *ProjectBuilder) Build() *project.Project {
	return project.NewProject(pb.ownerID, pb.title, pb.category, pb.budget, pb.deadline, pb.mode)
}

// AuctionBuilder builds test Auction entities
type AuctionBuilder struct {
	projectID uuid.UUID
	startTime time.Time
	endTime   time.Time
	live      bool
}

func NewAuctionBuilder() *AuctionBuilder {
	now := time.Now().UTC()
	return &AuctionBuilder{
		projectID: uuid.New(),
		startTime: now,
		endTime:   now.Add(time.Hour),
	}
}

func (ab *AuctionBuilder) WithProjectID(id uuid.UUID) *AuctionBuilder {
	ab.projectID = id
	return ab
}

func (ab *AuctionBuilder) WithSchedule(start, end time.Time) *AuctionBuilder {
	ab.startTime = start
	ab.endTime = end
	return ab
}

// Live builds the auction already transitioned to LIVE
func (ab *AuctionBuilder) Live() *AuctionBuilder {
	ab.live = true
	return ab
}

func (ab *AuctionBuilder) Build() *auction.Auction {
	a := auction.New(ab.projectID, ab.startTime, ab.endTime)
	if ab.live {
		if err := a.GoLive(time.Now().UTC()); err != nil {
			panic(err)
		}
	}
	return a
}

// BidBuilder builds test Bid entities
type BidBuilder struct {
	auctionID   uuid.UUID
	projectID   uuid.UUID
	bidderID    uuid.UUID
	bidderName  string
	price       values.Money
	days        int
	proposal    string
	submittedAt *time.Time
}

func NewBidBuilder() *BidBuilder {
	return &BidBuilder{
		auctionID:  uuid.New(),
		projectID:  uuid.New(),
		bidderID:   uuid.New(),
		bidderName: "Acme Builders",
		price:      values.MustNewMoneyFromFloat(7500, values.USD),
		days:       30,
		proposal:   "complete renovation with materials included",
	}
}

func (bb *BidBuilder) WithAuctionID(id uuid.UUID) *BidBuilder {
	bb.auctionID = id
	return bb
}

func (bb *BidBuilder) WithProjectID(id uuid.UUID) *BidBuilder {
	bb.projectID = id
	return bb
}

func (bb *BidBuilder) WithBidder(id uuid.UUID, name string) *BidBuilder {
	bb.bidderID = id
	bb.bidderName = name
	return bb
}

func (bb *BidBuilder) WithPrice(amount float64) *BidBuilder {
	bb.price = values.MustNewMoneyFromFloat(amount, values.USD)
	return bb
}

func (bb *BidBuilder) WithSubmittedAt(t time.Time) *BidBuilder {
	bb.submittedAt = &t
	return bb
}

func (bb *BidBuilder) Build() *bid.Bid {
	b := bid.New(bb.auctionID, bb.projectID, bb.bidderID, bb.bidderName, bb.price, bb.days, bb.proposal)
	if bb.submittedAt != nil {
		b.SubmittedAt = *bb.submittedAt
	}
	return b
}
