package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

// testSchedule mirrors the canonical operator configuration: 1% below $500,
// 0.5% from $500, 0.2% from $1000.
func testSchedule() FeeSchedule {
	return NewFeeSchedule(
		FeeTier{MinUSD: decimal.Zero, RateBps: 100},
		FeeTier{MinUSD: decimal.NewFromInt(500), RateBps: 50},
		FeeTier{MinUSD: decimal.NewFromInt(1000), RateBps: 20},
	)
}

func TestFeeScheduleValidate(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []FeeTier
		wantErr bool
	}{
		{"canonical three tiers", testSchedule().Tiers, false},
		{"single zero tier", []FeeTier{{MinUSD: decimal.Zero, RateBps: 100}}, false},
		{"zero rate allowed", []FeeTier{{MinUSD: decimal.Zero, RateBps: 0}}, false},
		{"full rate allowed", []FeeTier{{MinUSD: decimal.Zero, RateBps: 10000}}, false},
		{"empty schedule", nil, true},
		{"first threshold nonzero", []FeeTier{{MinUSD: decimal.NewFromInt(500), RateBps: 100}}, true},
		{"rate above denominator", []FeeTier{{MinUSD: decimal.Zero, RateBps: 10001}}, true},
		{"negative rate", []FeeTier{{MinUSD: decimal.Zero, RateBps: -1}}, true},
		{
			"thresholds not ascending",
			[]FeeTier{
				{MinUSD: decimal.Zero, RateBps: 100},
				{MinUSD: decimal.NewFromInt(1000), RateBps: 50},
				{MinUSD: decimal.NewFromInt(500), RateBps: 20},
			},
			true,
		},
		{
			"duplicate thresholds",
			[]FeeTier{
				{MinUSD: decimal.Zero, RateBps: 100},
				{MinUSD: decimal.NewFromInt(500), RateBps: 50},
				{MinUSD: decimal.NewFromInt(500), RateBps: 20},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFeeSchedule(tt.tiers...).Validate()
			if tt.wantErr {
				check.True(t, errors.Is(err, ErrInvalidConfig))
			} else {
				check.Nil(t, err)
			}
		})
	}
}

func TestRateForSelectsHighestMatchingTier(t *testing.T) {
	s := testSchedule()

	tests := []struct {
		name string
		usd  string
		want int64
	}{
		{"zero value hits default tier", "0", 100},
		{"below first threshold", "499.99", 100},
		{"exactly first threshold", "500", 50},
		{"between thresholds", "600", 50},
		{"exactly second threshold", "1000", 20},
		{"well above top threshold", "1800", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.want, s.RateFor(decimal.RequireFromString(tt.usd)))
		})
	}
}

func TestRateForMonotoneInValue(t *testing.T) {
	// As the USD value increases the selected rate never increases: higher
	// sales move to higher tiers, which carry lower rates in this schedule.
	s := testSchedule()

	prev := s.RateFor(decimal.Zero)
	for _, usd := range []int64{1, 100, 499, 500, 750, 999, 1000, 5000, 1000000} {
		rate := s.RateFor(decimal.NewFromInt(usd))
		check.LessThanOrEqual(t, rate, prev)
		prev = rate
	}
}

func TestDefaultRate(t *testing.T) {
	check.Equal(t, int64(100), testSchedule().DefaultRate())
	check.Equal(t, int64(0), FeeSchedule{}.DefaultRate())
}

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		rateBps int64
		want    string
	}{
		// 0.6 units at the 0.2% tier: the canonical $1800 scenario.
		{"winning 0.6 at 20 bps", "0.6", 20, "0.0012"},
		{"600 tokens at default 100 bps", "600", 100, "6"},
		{"600 tokens at 20 bps", "600", 20, "1.2"},
		{"zero rate charges nothing", "600", 0, "0"},
		{"full rate takes everything", "600", 10000, "600"},
		{"truncates toward zero, never up", "0.00000001", 1, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fee(decimal.RequireFromString(tt.amount), tt.rateBps)
			check.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestFeeHomogeneous(t *testing.T) {
	// Fee is homogeneous of degree 1 in the amount for a fixed rate: scaling
	// the sale scales the fee by the same factor.
	base := decimal.RequireFromString("0.6")
	for _, scale := range []int64{2, 10, 1000} {
		factor := decimal.NewFromInt(scale)
		scaled := Fee(base.Mul(factor), 20)
		check.True(t, scaled.Equal(Fee(base, 20).Mul(factor)))
	}
}

func TestUSDValue(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		price    string
		decimals int32
		want     string
	}{
		// A unit priced at $3000 with 8-decimal precision; a 0.6 bid is $1800.
		{"0.6 of a $3000 unit", "0.6", "300000000000", 8, "1800"},
		{"one whole $1 token", "1", "100000000", 8, "1"},
		{"600 $1 tokens", "600", "100000000", 8, "600"},
		{"six decimal feed", "2", "1500000", 6, "3"},
		{"zero amount", "0", "300000000000", 8, "0"},
		{"truncates toward zero", "0.000000001", "100000001", 8, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := USDValue(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.price), tt.decimals)
			check.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestCanonicalSettlement(t *testing.T) {
	// End-to-end fee math for the canonical scenario: unit priced at $3000
	// (8 decimals), winning bid 0.6 units = $1800, schedule selects 20 bps.
	s := testSchedule()
	amount := decimal.RequireFromString("0.6")
	usd := USDValue(amount, decimal.RequireFromString("300000000000"), 8)

	check.True(t, usd.Equal(decimal.NewFromInt(1800)))
	rate := s.RateFor(usd)
	check.Equal(t, int64(20), rate)

	fee := Fee(amount, rate)
	check.True(t, fee.Equal(decimal.RequireFromString("0.0012")))
	check.True(t, amount.Sub(fee).Equal(decimal.RequireFromString("0.5988")))
}
