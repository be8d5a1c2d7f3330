package core

import "github.com/shopspring/decimal"

// DefaultMinIncrementBps is the minimum outbid step applied when no explicit
// increment policy is configured: 5% over the standing highest bid.
const DefaultMinIncrementBps int64 = 500

// MinAcceptableBid returns the smallest amount that can outbid prev under the
// given increment requirement: prev * (10000 + incrementBps) / 10000. A bid of
// exactly this amount is acceptable.
func MinAcceptableBid(prev decimal.Decimal, incrementBps int64) decimal.Decimal {
	return prev.Mul(decimal.New(bpsDenominator+incrementBps, -4))
}

// MeetsIncrement reports whether amount is an acceptable outbid of prev.
func MeetsIncrement(amount, prev decimal.Decimal, incrementBps int64) bool {
	return amount.GreaterThanOrEqual(MinAcceptableBid(prev, incrementBps))
}
