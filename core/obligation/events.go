package obligation

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

const (
	TypeCreated       = "obligation.created"
	TypeBecameDue     = "obligation.became_due"
	TypeBecameOverdue = "obligation.became_overdue"
	TypeDefaulted     = "obligation.defaulted"
	TypeAllocated     = "obligation.allocated"
	TypeCompleted     = "obligation.completed"
)

// Created is emitted by Create.
type Created struct {
	ObligationID  ids.ObligationID
	FacilityID    ids.FacilityID
	DisbursalID   ids.DisbursalID
	Type          Type
	Amount        money.UsdCents
	RecordedAt    time.Time
	DueAt         time.Time
	OverdueAt     *time.Time
	LiquidationAt *time.Time
}

func (Created) EventType() string { return TypeCreated }

// BecameDue is emitted by BecomeDue.
type BecameDue struct {
	ObligationID ids.ObligationID
	EffectiveAt  time.Time
}

func (BecameDue) EventType() string { return TypeBecameDue }

// BecameOverdue is emitted by BecomeOverdue.
type BecameOverdue struct {
	ObligationID ids.ObligationID
	EffectiveAt  time.Time
}

func (BecameOverdue) EventType() string { return TypeBecameOverdue }

// Defaulted_ is emitted by Default. Named with a trailing underscore to
// avoid colliding with the Status constant of the same name.
type Defaulted_ struct {
	ObligationID ids.ObligationID
	EffectiveAt  time.Time
}

func (Defaulted_) EventType() string { return TypeDefaulted }

// Allocated is emitted by AllocatePayment for the portion applied.
type Allocated struct {
	ObligationID ids.ObligationID
	PaymentID    ids.PaymentID
	Amount       money.UsdCents
	AppliedAt    time.Time
}

func (Allocated) EventType() string { return TypeAllocated }

// Completed is emitted once AllocatePayment brings outstanding to zero.
type Completed struct {
	ObligationID ids.ObligationID
	EffectiveAt  time.Time
}

func (Completed) EventType() string { return TypeCompleted }
