package auctionapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Request type discriminators understood by the auctiond socket server.
const (
	TypePing           = "ping"
	TypeCreateAuction  = "create_auction"
	TypeBid            = "bid"
	TypeCancel         = "cancel"
	TypeFinalize       = "finalize"
	TypeGetAuction     = "get_auction"
	TypeEscrowedAmount = "escrowed_amount"
	TypeFeeQuote       = "fee_quote"
	TypeSetFeeConfig   = "set_fee_config"
	TypeRegisterOracle = "register_oracle"
)

// BaseRequest carries only the type discriminator; the server decodes it
// first to select the concrete request shape.
type BaseRequest struct {
	Type string `json:"type"`
}

// CreateAuctionRequest opens an auction for a unique asset. The caller is the
// seller; the asset moves into engine escrow as part of creation.
type CreateAuctionRequest struct {
	Type            string        `json:"type"`
	Caller          core.Account  `json:"caller"`
	Asset           core.AssetRef `json:"asset"`
	Unit            core.BidUnit  `json:"unit"`
	DurationSeconds int64         `json:"duration_seconds"`
}

// BidRequest places a bid on an open auction.
type BidRequest struct {
	Type      string          `json:"type"`
	Caller    core.Account    `json:"caller"`
	AuctionID uint64          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CancelRequest cancels a bid-free auction; seller only.
type CancelRequest struct {
	Type      string       `json:"type"`
	Caller    core.Account `json:"caller"`
	AuctionID uint64       `json:"auction_id"`
}

// FinalizeRequest settles an auction after its deadline.
type FinalizeRequest struct {
	Type      string       `json:"type"`
	Caller    core.Account `json:"caller"`
	AuctionID uint64       `json:"auction_id"`
}

// GetAuctionRequest reads an auction's current state.
type GetAuctionRequest struct {
	Type      string `json:"type"`
	AuctionID uint64 `json:"auction_id"`
}

// EscrowedAmountRequest reads how much of the bidding unit the engine holds
// for an auction.
type EscrowedAmountRequest struct {
	Type      string `json:"type"`
	AuctionID uint64 `json:"auction_id"`
}

// FeeQuoteRequest previews the fee a sale of Amount in Unit would incur under
// the active schedule and oracle readings.
type FeeQuoteRequest struct {
	Type   string          `json:"type"`
	Unit   core.BidUnit    `json:"unit"`
	Amount decimal.Decimal `json:"amount"`
}

// SetFeeConfigRequest replaces the active fee schedule wholesale; operator only.
type SetFeeConfigRequest struct {
	Type   string         `json:"type"`
	Caller core.Account   `json:"caller"`
	Tiers  []core.FeeTier `json:"tiers"`
}

// RegisterOracleRequest registers a fixed-price oracle for a bidding unit;
// operator only. Price is the integer oracle answer at the given decimal
// precision (e.g. $3000 with 8 decimals is 300000000000).
type RegisterOracleRequest struct {
	Type     string          `json:"type"`
	Caller   core.Account    `json:"caller"`
	Unit     core.BidUnit    `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Decimals int32           `json:"decimals"`
}

// AuctionView is a read-only snapshot of an auction record.
type AuctionView struct {
	ID            uint64          `json:"id"`
	Seller        core.Account    `json:"seller"`
	Asset         core.AssetRef   `json:"asset"`
	Unit          core.BidUnit    `json:"unit"`
	Deadline      time.Time       `json:"deadline"`
	CreatedAt     time.Time       `json:"created_at"`
	HighestBid    decimal.Decimal `json:"highest_bid"`
	HighestBidder core.Account    `json:"highest_bidder,omitempty"`
	BidCount      int             `json:"bid_count"`
	Status        string          `json:"status"`
}

// Response is the uniform reply envelope for all request types.
type Response struct {
	Type      string           `json:"type"`
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	AuctionID uint64           `json:"auction_id,omitempty"`
	Auction   *AuctionView     `json:"auction,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Fee       *decimal.Decimal `json:"fee,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
}

// Observable event types for indexers and auditors.
const (
	EventAuctionCreated   = "auction_created"
	EventBidPlaced        = "bid_placed"
	EventAuctionCancelled = "auction_cancelled"
	EventAuctionFinalized = "auction_finalized"
)

// Event is a single record in the settlement event stream. Fields beyond the
// header are populated per event type.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AuctionID uint64    `json:"auction_id"`

	Seller   core.Account     `json:"seller,omitempty"`
	Asset    *core.AssetRef   `json:"asset,omitempty"`
	Unit     core.BidUnit     `json:"unit,omitempty"`
	Deadline *time.Time       `json:"deadline,omitempty"`
	Bidder   core.Account     `json:"bidder,omitempty"`
	Winner   core.Account     `json:"winner,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Fee      *decimal.Decimal `json:"fee,omitempty"`
}

func newEvent(eventType string, auctionID uint64, ts time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: ts,
		AuctionID: auctionID,
	}
}

// NewAuctionCreated records an auction opening.
func NewAuctionCreated(auctionID uint64, seller core.Account, asset core.AssetRef, unit core.BidUnit, deadline, ts time.Time) Event {
	ev := newEvent(EventAuctionCreated, auctionID, ts)
	ev.Seller = seller
	ev.Asset = &asset
	ev.Unit = unit
	ev.Deadline = &deadline
	return ev
}

// NewBidPlaced records an accepted bid.
func NewBidPlaced(auctionID uint64, bidder core.Account, amount decimal.Decimal, ts time.Time) Event {
	ev := newEvent(EventBidPlaced, auctionID, ts)
	ev.Bidder = bidder
	ev.Amount = &amount
	return ev
}

// NewAuctionCancelled records a seller cancellation.
func NewAuctionCancelled(auctionID uint64, seller core.Account, ts time.Time) Event {
	ev := newEvent(EventAuctionCancelled, auctionID, ts)
	ev.Seller = seller
	return ev
}

// NewAuctionFinalized records settlement. Winner is empty and amount and fee
// are zero when the auction closed without bids.
func NewAuctionFinalized(auctionID uint64, winner core.Account, amount, fee decimal.Decimal, ts time.Time) Event {
	ev := newEvent(EventAuctionFinalized, auctionID, ts)
	ev.Winner = winner
	ev.Amount = &amount
	ev.Fee = &fee
	return ev
}
