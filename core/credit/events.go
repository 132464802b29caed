package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// Event type discriminants, stable across releases — persisted alongside
// the JSON payload and switched on by outbox subscribers (spec.md §6).
const (
	TypeProposalInitialized      = "credit_facility_proposal.initialized"
	TypeProposalApprovalConcluded = "credit_facility_proposal.approval_concluded"

	TypePendingInitialized             = "pending_credit_facility.initialized"
	TypePendingCollateralizationState  = "pending_credit_facility.collateralization_state_changed"
	TypePendingCollateralizationRatio  = "pending_credit_facility.collateralization_ratio_changed"
	TypePendingCompleted               = "pending_credit_facility.completed"

	TypeFacilityInitialized          = "credit_facility.initialized"
	TypeFacilityCollateralizationState = "credit_facility.collateralization_state_changed"
	TypeFacilityCollateralizationRatio  = "credit_facility.collateralization_ratio_changed"
	TypeFacilityCollateralUpdated     = "credit_facility.collateral_updated"
	TypeFacilityAccrualCycleStarted   = "credit_facility.accrual_cycle_started"
	TypeFacilityAccrualCycleConcluded = "credit_facility.accrual_cycle_concluded"
	TypeFacilityMatured               = "credit_facility.matured"
	TypeFacilityCompleted             = "credit_facility.completed"

	TypeDisbursalInitiated = "disbursal.initiated"
	TypeDisbursalSettled   = "disbursal.settled"
	TypeDisbursalCancelled = "disbursal.cancelled"
)

// ProposalInitialized is emitted by CreditFacilityProposal.Create.
type ProposalInitialized struct {
	ProposalID       ids.FacilityID
	CustomerID       ids.CustomerID
	CustomerType     CustomerType
	CustodianID      ids.CustodianID
	Terms            TermValues
	Amount           money.UsdCents
	DisbursalAccount string
	ApprovalProcessID ids.ApprovalProcessID
	CreatedAt        time.Time
}

func (ProposalInitialized) EventType() string { return TypeProposalInitialized }

// ProposalApprovalConcluded is emitted exactly once per proposal (spec.md
// §8 invariant).
type ProposalApprovalConcluded struct {
	ProposalID ids.FacilityID
	Approved   bool
	ConcludedAt time.Time
}

func (ProposalApprovalConcluded) EventType() string { return TypeProposalApprovalConcluded }

// PendingInitialized is emitted when a proposal's approval materialises a
// PendingCreditFacility.
type PendingInitialized struct {
	FacilityID ids.FacilityID
	Terms      TermValues
	Amount     money.UsdCents
	WalletID   ids.WalletID
	CreatedAt  time.Time
}

func (PendingInitialized) EventType() string { return TypePendingInitialized }

// PendingCollateralizationStateChanged is emitted by
// PendingCreditFacility.UpdateCollateralization when the discrete state
// label changes.
type PendingCollateralizationStateChanged struct {
	FacilityID ids.FacilityID
	State      CollateralizationState
	EffectiveAt time.Time
}

func (PendingCollateralizationStateChanged) EventType() string {
	return TypePendingCollateralizationState
}

// PendingCollateralizationRatioChanged is emitted whenever the last CVL
// ratio changes, independent of whether the discrete state changed.
type PendingCollateralizationRatioChanged struct {
	FacilityID ids.FacilityID
	Ratio      money.CollateralizationRatio
	EffectiveAt time.Time
}

func (PendingCollateralizationRatioChanged) EventType() string {
	return TypePendingCollateralizationRatio
}

// PendingCompleted is emitted by PendingCreditFacility.Complete.
type PendingCompleted struct {
	FacilityID ids.FacilityID
	CompletedAt time.Time
}

func (PendingCompleted) EventType() string { return TypePendingCompleted }

// FacilityInitialized is emitted once a PendingCreditFacility activates.
type FacilityInitialized struct {
	FacilityID   ids.FacilityID
	Principal    money.UsdCents
	Terms        TermValues
	Accounts     LedgerAccountIDs
	ActivatedAt  time.Time
	MaturityDate time.Time
}

func (FacilityInitialized) EventType() string { return TypeFacilityInitialized }

// FacilityCollateralizationStateChanged mirrors the pending-stage event for
// the active facility (with hysteresis applied, spec.md §4.6).
type FacilityCollateralizationStateChanged struct {
	FacilityID  ids.FacilityID
	State       CollateralizationState
	EffectiveAt time.Time
}

func (FacilityCollateralizationStateChanged) EventType() string {
	return TypeFacilityCollateralizationState
}

// FacilityCollateralizationRatioChanged mirrors the pending-stage ratio
// event.
type FacilityCollateralizationRatioChanged struct {
	FacilityID  ids.FacilityID
	Ratio       money.CollateralizationRatio
	EffectiveAt time.Time
}

func (FacilityCollateralizationRatioChanged) EventType() string {
	return TypeFacilityCollateralizationRatio
}

// FacilityCollateralUpdated carries the collateral delta driving
// re-collateralization, for either stage (spec.md §6).
type FacilityCollateralUpdated struct {
	FacilityID  ids.FacilityID
	Old         money.Satoshis
	New         money.Satoshis
	Source      CollateralUpdateSource
	WalletID    ids.WalletID
	EffectiveAt time.Time
}

func (FacilityCollateralUpdated) EventType() string { return TypeFacilityCollateralUpdated }

// FacilityAccrualCycleStarted is emitted by StartInterestAccrualCycle.
type FacilityAccrualCycleStarted struct {
	FacilityID ids.FacilityID
	CycleID    ids.AccrualCycleID
	CycleIndex uint32
	Period     CyclePeriod
}

func (FacilityAccrualCycleStarted) EventType() string { return TypeFacilityAccrualCycleStarted }

// FacilityAccrualCycleConcluded is emitted by RecordInterestAccrualCycle.
type FacilityAccrualCycleConcluded struct {
	FacilityID    ids.FacilityID
	CycleID       ids.AccrualCycleID
	CycleIndex    uint32
	TotalInterest money.UsdCents
	ObligationID  ids.ObligationID // zero value when TotalInterest == 0
	ConcludedAt   time.Time
}

func (FacilityAccrualCycleConcluded) EventType() string { return TypeFacilityAccrualCycleConcluded }

// FacilityMatured is emitted by CreditFacility.Mature.
type FacilityMatured struct {
	FacilityID ids.FacilityID
	MaturedAt  time.Time
}

func (FacilityMatured) EventType() string { return TypeFacilityMatured }

// FacilityCompleted is emitted by CreditFacility.Complete.
type FacilityCompleted struct {
	FacilityID        ids.FacilityID
	ResidualCollateral money.Satoshis
	CompletedAt       time.Time
}

func (FacilityCompleted) EventType() string { return TypeFacilityCompleted }

// DisbursalInitiated is emitted when a disbursal is requested.
type DisbursalInitiated struct {
	FacilityID  ids.FacilityID
	DisbursalID ids.DisbursalID
	Amount      money.UsdCents
	InitiatedAt time.Time
}

func (DisbursalInitiated) EventType() string { return TypeDisbursalInitiated }

// DisbursalSettled is emitted once the ledger confirms the transfer.
type DisbursalSettled struct {
	FacilityID  ids.FacilityID
	DisbursalID ids.DisbursalID
	ObligationID ids.ObligationID
	SettledAt   time.Time
}

func (DisbursalSettled) EventType() string { return TypeDisbursalSettled }

// DisbursalCancelled is emitted when a disbursal cannot be settled.
type DisbursalCancelled struct {
	FacilityID  ids.FacilityID
	DisbursalID ids.DisbursalID
	CancelledAt time.Time
}

func (DisbursalCancelled) EventType() string { return TypeDisbursalCancelled }
