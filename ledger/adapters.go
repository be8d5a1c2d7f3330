package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// AssetRegistry is the capability the engine holds over the non-fungible
// asset ledger: escrow-transfer of a unique asset in and out of engine
// custody. An error from either call aborts the ledger operation in progress.
type AssetRegistry interface {
	EscrowTransferIn(ctx context.Context, asset core.AssetRef, from core.Account) error
	EscrowTransferOut(ctx context.Context, asset core.AssetRef, to core.Account) error
}

// SettlementBank is the capability over fungible value: pulling bid amounts
// into engine escrow and pushing refunds and payouts back out. The unit
// parameter covers both the native value unit and fungible-token units.
type SettlementBank interface {
	PullFrom(ctx context.Context, unit core.BidUnit, payer core.Account, amount decimal.Decimal) error
	Push(ctx context.Context, unit core.BidUnit, payee core.Account, amount decimal.Decimal) error
}

// PriceReading is one oracle observation: an integer price at a fixed
// decimal precision (price / 10^decimals is the USD price of one unit).
type PriceReading struct {
	Price    decimal.Decimal
	Decimals int32
}

// PriceOracle reports the latest USD price for a bidding unit. An error
// means the unit is currently unconvertible; the engine degrades to the
// default fee tier rather than failing settlement. Readings are taken once
// per operation and never cached across calls.
type PriceOracle interface {
	LatestPrice(ctx context.Context, unit core.BidUnit) (PriceReading, error)
}

// AccessController authorizes privileged operations: fee-schedule changes,
// oracle registration, and forced finalization.
type AccessController interface {
	IsOperator(account core.Account) bool
}

// EventSink receives the observable event stream. Implementations must not
// call back into the ledger.
type EventSink interface {
	Emit(ev auctionapi.Event)
}

// nopSink drops events; the default when no sink is configured.
type nopSink struct{}

func (nopSink) Emit(auctionapi.Event) {}

// Archiver persists auction records and accepted bids for audit and query.
// Archiving is best effort: failures are logged and never unwind settlement.
type Archiver interface {
	ArchiveAuction(ctx context.Context, view auctionapi.AuctionView) error
	ArchiveBid(ctx context.Context, auctionID uint64, bidder core.Account, amount decimal.Decimal, placedAt time.Time) error
}
