package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 8 // truncation scale for computed fees and USD values

// bpsDenominator is the basis-point denominator: rates are expressed out of 10000.
const bpsDenominator int64 = 10000

// ErrInvalidConfig is returned when a fee schedule fails validation.
var ErrInvalidConfig = errors.New("invalid fee config")

// FeeTier is a single (threshold, rate) pair in the fee schedule. A sale whose
// USD-equivalent value is at least MinUSD (and below the next tier's threshold)
// is charged RateBps basis points of the sale amount.
type FeeTier struct {
	MinUSD  decimal.Decimal `json:"min_usd"`
	RateBps int64           `json:"rate_bps"`
}

// FeeSchedule maps a USD-denominated sale value to a fee rate. Tiers are
// ordered ascending by threshold; the first tier must start at zero so that a
// rate exists for every sale, including ones whose USD value is unknown.
type FeeSchedule struct {
	Tiers []FeeTier `json:"tiers"`
}

// NewFeeSchedule builds a schedule from (threshold, rate) pairs in ascending
// threshold order.
func NewFeeSchedule(tiers ...FeeTier) FeeSchedule {
	return FeeSchedule{Tiers: tiers}
}

// DefaultFeeSchedule returns the built-in schedule: 1% below $1000, 0.5% from
// $1000, and 0.2% from $10000.
func DefaultFeeSchedule() FeeSchedule {
	return NewFeeSchedule(
		FeeTier{MinUSD: decimal.Zero, RateBps: 100},
		FeeTier{MinUSD: decimal.NewFromInt(1000), RateBps: 50},
		FeeTier{MinUSD: decimal.NewFromInt(10000), RateBps: 20},
	)
}

// Validate checks that the schedule is well formed: at least one tier, a
// zero threshold on the first tier, strictly ascending thresholds, and rates
// within [0, 10000] basis points.
func (s FeeSchedule) Validate() error {
	if len(s.Tiers) == 0 {
		return fmt.Errorf("%w: at least one tier is required", ErrInvalidConfig)
	}
	if !s.Tiers[0].MinUSD.IsZero() {
		return fmt.Errorf("%w: first tier threshold must be zero, got %s", ErrInvalidConfig, s.Tiers[0].MinUSD)
	}
	for i, tier := range s.Tiers {
		if tier.RateBps < 0 || tier.RateBps > bpsDenominator {
			return fmt.Errorf("%w: tier %d rate %d outside [0, %d] basis points", ErrInvalidConfig, i, tier.RateBps, bpsDenominator)
		}
		if i > 0 && !tier.MinUSD.GreaterThan(s.Tiers[i-1].MinUSD) {
			return fmt.Errorf("%w: tier thresholds must be strictly ascending, tier %d has %s after %s",
				ErrInvalidConfig, i, tier.MinUSD, s.Tiers[i-1].MinUSD)
		}
	}
	return nil
}

// RateFor selects the rate for a sale with the given USD-equivalent value:
// the highest tier whose threshold does not exceed it, scanning from the top.
func (s FeeSchedule) RateFor(usd decimal.Decimal) int64 {
	for i := len(s.Tiers) - 1; i >= 0; i-- {
		if usd.GreaterThanOrEqual(s.Tiers[i].MinUSD) {
			return s.Tiers[i].RateBps
		}
	}
	return s.DefaultRate()
}

// DefaultRate is the rate applied when the USD-equivalent value of a sale is
// unknown (no oracle registered, or the reading is unusable). It is the
// zero-threshold tier's rate, the most conservative in the schedule.
func (s FeeSchedule) DefaultRate() int64 {
	if len(s.Tiers) == 0 {
		return 0
	}
	return s.Tiers[0].RateBps
}

// Fee computes the platform fee on a sale amount at the given rate:
// amount * rate / 10000, truncated toward zero so the fee never rounds up
// against the seller.
func Fee(amount decimal.Decimal, rateBps int64) decimal.Decimal {
	return amount.Mul(decimal.New(rateBps, -4)).Truncate(monetaryPrecision)
}

// USDValue converts an amount of a bidding unit to its USD-denominated value
// using an oracle price quoted as an integer with a fixed decimal precision:
// amount * price / 10^decimals, truncated toward zero.
func USDValue(amount, price decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Mul(price).Shift(-decimals).Truncate(monetaryPrecision)
}
