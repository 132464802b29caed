package credit

import "time"

// CustomerType enumerates the kinds of customer a proposal can be raised
// for (spec.md §3).
type CustomerType int

const (
	CustomerIndividual CustomerType = iota
	CustomerCompany
	CustomerBank
)

// CollateralizationState is the discrete label over CVL ranges shared by
// both PendingCreditFacility and CreditFacility (spec.md glossary).
type CollateralizationState int

const (
	// NoCollateral is pinned on a closed facility (spec.md §4.4).
	NoCollateral CollateralizationState = iota
	UnderLiquidationCvl
	UnderMarginCallCvl
	MarginCall
	FullyCollateralized
)

func (s CollateralizationState) String() string {
	switch s {
	case NoCollateral:
		return "NoCollateral"
	case UnderLiquidationCvl:
		return "UnderLiquidationCvl"
	case UnderMarginCallCvl:
		return "UnderMarginCallCvl"
	case MarginCall:
		return "MarginCall"
	case FullyCollateralized:
		return "FullyCollateralized"
	default:
		return "Unknown"
	}
}

// CollateralUpdateSource tags why a Collateral balance changed (spec.md §3
// "update lineage").
type CollateralUpdateSource int

const (
	UpdateSourceManual CollateralUpdateSource = iota
	UpdateSourceWalletSync
)

// LedgerAccountIDs is the set of 13 distinct ledger accounts a facility
// owns (spec.md §3).
type LedgerAccountIDs struct {
	FacilityAccount      string
	CollateralAccount    string
	InLiquidationAccount string

	DisbursedNotYetDueAccount string
	DisbursedDueAccount       string
	DisbursedOverdueAccount   string
	DisbursedDefaultedAccount string

	InterestNotYetDueAccount string
	InterestDueAccount       string
	InterestOverdueAccount   string
	InterestDefaultedAccount string

	InterestIncomeAccount string
	FeeIncomeAccount      string
}

// CyclePeriod is a half-open [Start, End) interval over instants, truncated
// at the facility's maturity date (spec.md §4.5).
type CyclePeriod struct {
	Start time.Time
	End   time.Time
}

// IsEmpty reports whether the period has been truncated to nothing (End <=
// Start), the signal that cycle generation should stop (spec.md §4.5).
func (p CyclePeriod) IsEmpty() bool { return !p.End.After(p.Start) }

// Contains reports whether t falls within the half-open period.
func (p CyclePeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// FacilityStatus is CreditFacility's lifecycle status.
type FacilityStatus int

const (
	FacilityActive FacilityStatus = iota
	FacilityMaturedStatus
	FacilityClosed
)

// ProposalStatus is CreditFacilityProposal's lifecycle status.
type ProposalStatus int

const (
	ProposalPendingApproval ProposalStatus = iota
	ProposalApproved
	ProposalDenied
)

// PendingStatus is PendingCreditFacility's lifecycle status.
type PendingStatus int

const (
	PendingOpen PendingStatus = iota
	PendingCompletedStatus
)

// FacilityBalances is the read-through view the ledger reports back,
// consumed by CVL/collateralization computations (spec.md §4.6).
type FacilityBalances struct {
	DisbursedNotYetDue money.UsdCents
	DisbursedDue       money.UsdCents
	DisbursedOverdue   money.UsdCents
	DisbursedDefaulted money.UsdCents

	InterestNotYetDue money.UsdCents
	InterestDue       money.UsdCents
	InterestOverdue   money.UsdCents
	InterestDefaulted money.UsdCents

	CollateralSats money.Satoshis
}

// DisbursedOutstanding sums every non-defaulted disbursed bucket.
func (b FacilityBalances) DisbursedOutstanding() money.UsdCents {
	return b.DisbursedNotYetDue + b.DisbursedDue + b.DisbursedOverdue
}

// InterestOutstanding sums every non-defaulted interest bucket.
func (b FacilityBalances) InterestOutstanding() money.UsdCents {
	return b.InterestNotYetDue + b.InterestDue + b.InterestOverdue
}

// OutstandingPayable is disbursed + interest outstanding, excluding
// defaulted balances (spec.md §4.6).
func (b FacilityBalances) OutstandingPayable() money.UsdCents {
	return b.DisbursedOutstanding() + b.InterestOutstanding()
}

// HasAnyOutstandingOrDefaulted reports whether any of the eight buckets
// (four disbursed, four interest, including defaulted) are nonzero — the
// guard used by CreditFacility.Complete (spec.md §4.4).
func (b FacilityBalances) HasAnyOutstandingOrDefaulted() bool {
	return b.DisbursedNotYetDue != 0 || b.DisbursedDue != 0 || b.DisbursedOverdue != 0 || b.DisbursedDefaulted != 0 ||
		b.InterestNotYetDue != 0 || b.InterestDue != 0 || b.InterestOverdue != 0 || b.InterestDefaulted != 0
}
