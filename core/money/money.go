// Package money defines the monetary primitives shared across the credit
// core: satoshi and USD-cent counters, BTC spot price, and the decimal
// collateralization ratios derived from them.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Satoshis is an unsigned count of 10^-8 BTC. There is no fractional
// representation; all arithmetic is integer.
type Satoshis uint64

// UsdCents is an unsigned count of 10^-2 USD.
type UsdCents uint64

// PriceOfOneBTC is the USD-cent price of one whole BTC, as reported by the
// price feed.
type PriceOfOneBTC UsdCents

const satsPerBTC = 100_000_000

// Add returns the sum of two Satoshis amounts.
func (s Satoshis) Add(other Satoshis) Satoshis { return s + other }

// Sub returns s - other, or zero if other exceeds s.
func (s Satoshis) Sub(other Satoshis) Satoshis {
	if other > s {
		return 0
	}
	return s - other
}

// Add returns the sum of two UsdCents amounts.
func (c UsdCents) Add(other UsdCents) UsdCents { return c + other }

// Sub returns c - other, or zero if other exceeds c.
func (c UsdCents) Sub(other UsdCents) UsdCents {
	if other > c {
		return 0
	}
	return c - other
}

// SaturatingSub returns (c-other, overflowed).
func (c UsdCents) SaturatingSub(other UsdCents) (UsdCents, bool) {
	if other > c {
		return 0, true
	}
	return c - other, false
}

// UsdValue converts a Satoshis balance to its USD-cent value at the given
// spot price, rounding toward zero. Division by an empty price yields zero.
func (s Satoshis) UsdValue(price PriceOfOneBTC) UsdCents {
	if price == 0 {
		return 0
	}
	// cents = sats * price_cents_per_btc / sats_per_btc
	num := decimal.NewFromInt(int64(s)).Mul(decimal.NewFromInt(int64(price)))
	den := decimal.NewFromInt(satsPerBTC)
	return UsdCents(num.Div(den).Truncate(0).IntPart())
}

// PercentOfCents computes floor(amount * bps / 10_000) — integer-percent-on-cents
// rounding toward zero, used for the one-time structuring fee and similar
// rate-on-amount computations.
func PercentOfCents(amount UsdCents, rateBps uint32) UsdCents {
	if amount == 0 || rateBps == 0 {
		return 0
	}
	num := decimal.NewFromInt(int64(amount)).Mul(decimal.NewFromInt(int64(rateBps)))
	den := decimal.NewFromInt(10_000)
	return UsdCents(num.Div(den).Truncate(0).IntPart())
}

func (c UsdCents) String() string {
	return fmt.Sprintf("$%d.%02d", uint64(c)/100, uint64(c)%100)
}

func (s Satoshis) String() string {
	return fmt.Sprintf("%d sats", uint64(s))
}
