package credit

import "errors"

// Sentinel errors grouped by aggregate, in the style of the teacher's
// core/errors package (var ErrXxx = errors.New(...)) rather than ad hoc
// fmt.Errorf strings at call sites.
var (
	// ErrInvalidTerms is a Validation-kind error: malformed TermValues.
	ErrInvalidTerms = errors.New("credit: invalid term values")

	// ErrBelowMarginLimit is a Precondition-kind error: a proposal or
	// disbursal would leave the facility below the margin-call CVL
	// (spec.md §4.3, §4.6).
	ErrBelowMarginLimit = errors.New("credit: collateral below margin call limit")

	// ErrApprovalInProgress is a Precondition-kind error: the proposal has
	// not yet received an ApprovalProcessConcluded signal.
	ErrApprovalInProgress = errors.New("credit: approval still in progress")

	// ErrOutstandingAmount is a Precondition-kind error: complete() was
	// called while a facility still carries a nonzero disbursed or
	// interest balance in any bucket, defaulted included (spec.md §4.4).
	ErrOutstandingAmount = errors.New("credit: facility has outstanding balances")

	// ErrInProgressAccrualCycleNotCompletedYet is a Precondition-kind
	// error: start_interest_accrual_cycle was called while the current
	// cycle has not finished accruing (spec.md §4.5).
	ErrInProgressAccrualCycleNotCompletedYet = errors.New("credit: in-progress interest accrual cycle not completed yet")

	// ErrAccrualCycleInvalidFutureStartDate is a Precondition-kind error:
	// the computed next cycle period starts in the future (spec.md §4.5).
	ErrAccrualCycleInvalidFutureStartDate = errors.New("credit: interest accrual cycle has an invalid future start date")

	// ErrDisbursalPastMaturity is a Precondition-kind error: a disbursal
	// was requested after the facility's maturity date (spec.md §7).
	ErrDisbursalPastMaturity = errors.New("credit: disbursal requested past facility maturity date")

	// ErrFacilityNotActive is a programmer-error guard: an operation
	// requiring an Active facility was invoked on a Matured/Closed one
	// outside the transitions that explicitly allow it.
	ErrFacilityNotActive = errors.New("credit: facility is not active")

	// ErrProposalAlreadyConcluded mirrors ErrApprovalInProgress from the
	// proposal's point of view for callers that want a distinct
	// discriminant for "conclude was already called".
	ErrProposalAlreadyConcluded = errors.New("credit: proposal approval already concluded")
)
