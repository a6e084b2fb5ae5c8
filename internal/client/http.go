package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// HTTPService talks to a deployed auction backend over its REST API.
//
// Transport failures are reported as TRANSPORT_FAILURE and must not be
// treated as a definite outcome: a timed-out mutation may or may not have
// committed server-side, so the caller reconciles via GetLiveState instead
// of retrying the mutation blindly.
type HTTPService struct {
	baseURL string
	actor   uuid.UUID
	hc      *http.Client
}

var _ AuctionService = (*HTTPService)(nil)

func NewHTTPService(baseURL string, actor uuid.UUID, hc *http.Client) *HTTPService {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		actor:   actor,
		hc:      hc,
	}
}

type wireError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func typeForStatus(status int) errors.ErrorType {
	switch {
	case status == http.StatusConflict:
		return errors.ErrorTypeConflict
	case status == http.StatusNotFound:
		return errors.ErrorTypeNotFound
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return errors.ErrorTypeForbidden
	case status >= 500:
		return errors.ErrorTypeInternal
	default:
		return errors.ErrorTypeValidation
	}
}

// do issues one request and decodes the data envelope into dest (which may
// be nil for responses whose body the caller does not need).
func (s *HTTPService) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", s.actor.String())

	resp, err := s.hc.Do(req)
	if err != nil {
		return errors.NewTransportError("request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var we wireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err != nil || we.Error.Code == "" {
			return errors.NewTransportError(
				fmt.Sprintf("unexpected response status %d", resp.StatusCode))
		}
		return &errors.AppError{
			Type:       typeForStatus(resp.StatusCode),
			Code:       we.Error.Code,
			Message:    we.Error.Message,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			StatusCode: resp.StatusCode,
		}
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.NewTransportError("decode response").WithCause(err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return errors.NewTransportError("decode response data").WithCause(err)
	}
	return nil
}

type submitBidBody struct {
	BidderID      uuid.UUID `json:"bidder_id"`
	BidderName    string    `json:"bidder_name"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	EstimatedDays int       `json:"estimated_duration"`
	Proposal      string    `json:"proposal"`
}

type updateBidBody struct {
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	EstimatedDays int     `json:"timeline"`
	Proposal      string  `json:"proposal"`
}

func (s *HTTPService) SubmitBid(ctx context.Context, auctionID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error) {
	var rb auction.RankedBid
	err := s.do(ctx, http.MethodPost, "/api/v1/auctions/"+auctionID.String()+"/bids", submitBidBody{
		BidderID:      bidderID,
		BidderName:    bidderName,
		Amount:        price.ToFloat64(),
		Currency:      price.Currency(),
		EstimatedDays: estimatedDays,
		Proposal:      proposal,
	}, &rb)
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

func (s *HTTPService) UpdateBid(ctx context.Context, bidID uuid.UUID, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error) {
	var rb auction.RankedBid
	err := s.do(ctx, http.MethodPut, "/api/v1/bids/"+bidID.String(), updateBidBody{
		Price:         price.ToFloat64(),
		Currency:      price.Currency(),
		EstimatedDays: estimatedDays,
		Proposal:      proposal,
	}, &rb)
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

func (s *HTTPService) WithdrawBid(ctx context.Context, bidID uuid.UUID) error {
	return s.do(ctx, http.MethodDelete, "/api/v1/bids/"+bidID.String(), nil, nil)
}

func (s *HTTPService) AcceptBid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error) {
	var b bid.Bid
	if err := s.do(ctx, http.MethodPost, "/api/v1/bids/"+bidID.String()+"/accept", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *HTTPService) RejectBid(ctx context.Context, bidID uuid.UUID, reason string) (*bid.Bid, error) {
	var b bid.Bid
	body := map[string]string{"reason": reason}
	if err := s.do(ctx, http.MethodPost, "/api/v1/bids/"+bidID.String()+"/reject", body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *HTTPService) EndAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.do(ctx, http.MethodPost, "/api/v1/auctions/"+auctionID.String()+"/end", nil, nil)
}

func (s *HTTPService) GetLiveState(ctx context.Context, auctionID uuid.UUID) (*auction.LiveState, error) {
	var state auction.LiveState
	if err := s.do(ctx, http.MethodGet, "/api/v1/auctions/"+auctionID.String()+"/live-state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
