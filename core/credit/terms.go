// Package credit implements the credit-facility state machine: the
// CreditFacilityProposal / PendingCreditFacility / CreditFacility triad,
// the InterestAccrualCycle engine, Collateral, and Disbursal, per spec.md
// §4.2-§4.6. Structured as one cohesive package the way the teacher keeps
// its entire risk-parameter/interest-model/liquidation engine in a single
// native/lending package rather than splitting each concern out.
package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/money"
)

// AccrualInterval names how often, within a cycle, interest is stepped and
// summed (spec.md §3: "e.g. end-of-day").
type AccrualInterval int

const (
	// AccrualEndOfDay steps interest once per calendar day.
	AccrualEndOfDay AccrualInterval = iota
)

// AccrualCycleInterval names the cadence at which a cycle itself concludes
// and a new one starts (spec.md §3: "e.g. end-of-month").
type AccrualCycleInterval int

const (
	// AccrualCycleEndOfMonth closes a cycle at each calendar-month boundary.
	AccrualCycleEndOfMonth AccrualCycleInterval = iota
)

// TermValues is the immutable negotiated terms of a facility (spec.md §3).
type TermValues struct {
	AnnualInterestRate money.CVLPct // expressed as a percentage, e.g. 12 for 12%/yr
	DurationMonths     uint32
	AccrualInterval    AccrualInterval
	CycleInterval      AccrualCycleInterval

	OneTimeFeeRateBps uint32 // structuring fee, basis points of principal

	InitialCVL    money.CVLPct
	MarginCallCVL money.CVLPct
	LiquidationCVL money.CVLPct

	InterestDueOffset   time.Duration // from accrual-cycle end to obligation due
	OverdueOffset       time.Duration // from due to overdue
	LiquidationOffset   time.Duration // from due to liquidation-eligible

	DisburseAllAtActivation bool
}

// Validate enforces the CVL ordering invariant named in spec.md §3:
// initial_cvl >= margin_call_cvl >= liquidation_cvl.
func (t TermValues) Validate() error {
	if t.InitialCVL.Less(t.MarginCallCVL) {
		return ErrInvalidTerms
	}
	if t.MarginCallCVL.Less(t.LiquidationCVL) {
		return ErrInvalidTerms
	}
	if t.DurationMonths == 0 {
		return ErrInvalidTerms
	}
	return nil
}

// MaturityFrom returns the effective maturity date given an activation
// instant: activation plus the facility duration in months (spec.md §3).
func (t TermValues) MaturityFrom(activatedAt time.Time) time.Time {
	return activatedAt.AddDate(0, int(t.DurationMonths), 0)
}

// StructuringFee computes the one-time structuring fee on a principal
// amount, per spec.md §4.4: integer-percent-on-cents rounding toward zero.
// Zero principal yields a zero fee (spec.md §8 boundary behaviour).
func (t TermValues) StructuringFee(principal money.UsdCents) money.UsdCents {
	return money.PercentOfCents(principal, t.OneTimeFeeRateBps)
}

// TermsTemplate is a named, reusable TermValues constructor — not a new
// aggregate, just a convenience value, since persistence/listing of saved
// templates is an admin-surface concern out of this core's scope (grounded
// on original_source's terms_template.rs, which is itself thin).
type TermsTemplate struct {
	Name   string
	Values TermValues
}
