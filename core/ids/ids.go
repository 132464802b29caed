// Package ids defines the strongly-typed opaque identifiers shared across
// the credit core's aggregates, one wrapper type per aggregate so that
// e.g. a ProposalID can never be passed where an ObligationID is expected.
package ids

import "github.com/google/uuid"

// FacilityID identifies a CreditFacilityProposal / PendingCreditFacility /
// CreditFacility triad — the same value is carried through all three
// lifecycle stages (spec.md §3, "share the same underlying id").
type FacilityID uuid.UUID

// ObligationID identifies an Obligation.
type ObligationID uuid.UUID

// AccrualCycleID identifies one InterestAccrualCycle.
type AccrualCycleID uuid.UUID

// DisbursalID identifies one disbursal against a facility.
type DisbursalID uuid.UUID

// PaymentID identifies an incoming repayment applied against obligations.
type PaymentID uuid.UUID

// CustomerID identifies the customer who owns a proposal/facility.
type CustomerID uuid.UUID

// CustodianID identifies an optional custodian of record.
type CustodianID uuid.UUID

// WalletID identifies a custody wallet backing a Collateral balance.
type WalletID uuid.UUID

// ApprovalProcessID identifies the external governance approval process
// tracked by a proposal or disbursal.
type ApprovalProcessID uuid.UUID

// ChartID identifies a chart of accounts.
type ChartID uuid.UUID

// ChartNodeID identifies one node within a chart.
type ChartNodeID uuid.UUID

// PublicID is an opaque external reference distinct from the internal id,
// used for customer-facing surfaces (spec.md §6, "by public-id").
type PublicID uuid.UUID

func newID() uuid.UUID { return uuid.New() }

// NewFacilityID mints a fresh facility identity.
func NewFacilityID() FacilityID { return FacilityID(newID()) }

// NewObligationID mints a fresh obligation identity.
func NewObligationID() ObligationID { return ObligationID(newID()) }

// NewAccrualCycleID mints a fresh accrual-cycle identity.
func NewAccrualCycleID() AccrualCycleID { return AccrualCycleID(newID()) }

// NewDisbursalID mints a fresh disbursal identity.
func NewDisbursalID() DisbursalID { return DisbursalID(newID()) }

// NewPaymentID mints a fresh payment identity.
func NewPaymentID() PaymentID { return PaymentID(newID()) }

// NewChartID mints a fresh chart identity.
func NewChartID() ChartID { return ChartID(newID()) }

// NewChartNodeID mints a fresh chart-node identity.
func NewChartNodeID() ChartNodeID { return ChartNodeID(newID()) }

// NewPublicID mints a fresh public-facing reference id.
func NewPublicID() PublicID { return PublicID(newID()) }

// ParseFacilityID parses a string-form UUID back into a FacilityID, for
// repositories that persist ids as strings (core/eventstore).
func ParseFacilityID(s string) (FacilityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FacilityID{}, err
	}
	return FacilityID(u), nil
}

// ParseObligationID parses a string-form UUID back into an ObligationID.
func ParseObligationID(s string) (ObligationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ObligationID{}, err
	}
	return ObligationID(u), nil
}

// ParseApprovalProcessID parses a string-form UUID back into an
// ApprovalProcessID, for collaborators that return process ids as strings.
func ParseApprovalProcessID(s string) (ApprovalProcessID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ApprovalProcessID{}, err
	}
	return ApprovalProcessID(u), nil
}

func (id FacilityID) String() string        { return uuid.UUID(id).String() }
func (id ObligationID) String() string      { return uuid.UUID(id).String() }
func (id AccrualCycleID) String() string    { return uuid.UUID(id).String() }
func (id DisbursalID) String() string       { return uuid.UUID(id).String() }
func (id PaymentID) String() string         { return uuid.UUID(id).String() }
func (id CustomerID) String() string        { return uuid.UUID(id).String() }
func (id CustodianID) String() string       { return uuid.UUID(id).String() }
func (id WalletID) String() string          { return uuid.UUID(id).String() }
func (id ApprovalProcessID) String() string  { return uuid.UUID(id).String() }
func (id ChartID) String() string           { return uuid.UUID(id).String() }
func (id ChartNodeID) String() string       { return uuid.UUID(id).String() }
func (id PublicID) String() string          { return uuid.UUID(id).String() }

// IsZero reports whether the id is the zero UUID, used to distinguish
// "unset" optional references (e.g. an obligation's DisbursalID when the
// obligation is an interest obligation, not a disbursal).
func (id FacilityID) IsZero() bool       { return id == FacilityID{} }
func (id ObligationID) IsZero() bool     { return id == ObligationID{} }
func (id DisbursalID) IsZero() bool      { return id == DisbursalID{} }
func (id CustodianID) IsZero() bool      { return id == CustodianID{} }
func (id WalletID) IsZero() bool         { return id == WalletID{} }
func (id ApprovalProcessID) IsZero() bool { return id == ApprovalProcessID{} }
