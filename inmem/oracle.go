package inmem

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/ledger"
)

// FixedOracle answers every price query with a constant reading: an integer
// price at a fixed decimal precision, the shape real feed aggregators use.
type FixedOracle struct {
	price    decimal.Decimal
	decimals int32
}

var _ ledger.PriceOracle = (*FixedOracle)(nil)

// NewFixedOracle returns an oracle quoting price at the given precision
// (e.g. $3000 with 8 decimals is NewFixedOracle(decimal.New(300000000000, 0), 8)).
func NewFixedOracle(price decimal.Decimal, decimals int32) *FixedOracle {
	return &FixedOracle{price: price, decimals: decimals}
}

// LatestPrice returns the fixed reading.
func (o *FixedOracle) LatestPrice(context.Context, core.BidUnit) (ledger.PriceReading, error) {
	return ledger.PriceReading{Price: o.price, Decimals: o.decimals}, nil
}

// Operators is a fixed allow-list access controller.
type Operators struct {
	set map[core.Account]struct{}
}

var _ ledger.AccessController = (*Operators)(nil)

// NewOperators builds an access controller from the given accounts.
func NewOperators(accounts ...core.Account) *Operators {
	set := make(map[core.Account]struct{}, len(accounts))
	for _, a := range accounts {
		set[a] = struct{}{}
	}
	return &Operators{set: set}
}

// IsOperator reports whether account is on the allow list.
func (o *Operators) IsOperator(account core.Account) bool {
	_, ok := o.set[account]
	return ok
}
