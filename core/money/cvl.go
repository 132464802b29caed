package money

import "github.com/shopspring/decimal"

// CVLPct is a collateral-value-level percentage: collateral USD value
// divided by outstanding payable (or facility amount), times 100. Carried as
// an exact decimal so threshold comparisons never drift from rounding.
type CVLPct struct{ d decimal.Decimal }

// CollateralizationRatio carries the same semantic as CVLPct but is stored
// separately on aggregates so that "did the ratio change" can be detected
// without re-deriving it from raw balances.
type CollateralizationRatio struct{ d decimal.Decimal }

var hundred = decimal.NewFromInt(100)

// NewCVLPct builds a CVLPct from collateral USD value and an outstanding
// payable amount. A zero denominator yields a fixed CVL of 1,000,000%,
// treated by callers as "fully covered"
// since there is nothing to be under-collateralized against — though in
// practice proposals/facilities never reach this with a nonzero principal.
func NewCVLPct(collateralUSD UsdCents, outstanding UsdCents) CVLPct {
	if outstanding == 0 {
		return CVLPct{d: decimal.NewFromInt(1_000_000)}
	}
	ratio := decimal.NewFromInt(int64(collateralUSD)).Div(decimal.NewFromInt(int64(outstanding)))
	return CVLPct{d: ratio.Mul(hundred)}
}

// ZeroCVL is the CVL of a facility with no collateral at all.
var ZeroCVL = CVLPct{d: decimal.Zero}

// CVLPctFromInt constructs a CVLPct from a whole-percentage integer, e.g.
// CVLPctFromInt(140) for "140%". Used to build terms thresholds.
func CVLPctFromInt(pct int64) CVLPct { return CVLPct{d: decimal.NewFromInt(pct)} }

// GreaterOrEqual reports whether cvl >= other.
func (c CVLPct) GreaterOrEqual(other CVLPct) bool { return c.d.GreaterThanOrEqual(other.d) }

// Less reports whether cvl < other.
func (c CVLPct) Less(other CVLPct) bool { return c.d.LessThan(other.d) }

// Plus adds a whole-percentage-point buffer (e.g. Plus(5) for "+5 points").
func (c CVLPct) Plus(points int64) CVLPct { return CVLPct{d: c.d.Add(decimal.NewFromInt(points))} }

// Equal reports exact equality, used by change-detection before emitting
// FacilityCollateralizationChanged-style events.
func (c CVLPct) Equal(other CVLPct) bool { return c.d.Equal(other.d) }

func (c CVLPct) String() string { return c.d.StringFixed(2) + "%" }

// AsRatio converts a CVLPct into a CollateralizationRatio for storage on an
// aggregate (same decimal, different semantic label).
func (c CVLPct) AsRatio() CollateralizationRatio { return CollateralizationRatio{d: c.d} }

func (r CollateralizationRatio) Equal(other CollateralizationRatio) bool { return r.d.Equal(other.d) }

func (r CollateralizationRatio) String() string { return r.d.StringFixed(2) + "%" }
