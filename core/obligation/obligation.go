// Package obligation implements the Obligation lifecycle (spec.md §4.7):
// an owed sum — disbursed principal or accrued interest — that moves
// NotYetDue -> Due -> Overdue -> Defaulted on a schedule, or to Paid from
// any non-terminal status once payments cover it. Modelled as a sibling
// aggregate to CreditFacility for independent pagination and projection
// (spec.md §3 "Relationships").
package obligation

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// Type distinguishes a disbursed-principal obligation from an
// accrued-interest obligation (spec.md §3).
type Type int

const (
	Disbursed Type = iota
	Interest
)

func (t Type) String() string {
	if t == Interest {
		return "Interest"
	}
	return "Disbursed"
}

// Status is the obligation's lifecycle position (spec.md §4.7).
type Status int

const (
	NotYetDue Status = iota
	Due
	Overdue
	Defaulted
	Paid
)

func (s Status) String() string {
	switch s {
	case Due:
		return "Due"
	case Overdue:
		return "Overdue"
	case Defaulted:
		return "Defaulted"
	case Paid:
		return "Paid"
	default:
		return "NotYetDue"
	}
}

// Allocation is the portion of a payment applied to one obligation.
type Allocation struct {
	PaymentID ids.PaymentID
	Amount    money.UsdCents
	AppliedAt time.Time
}

// Obligation is an owed sum with a due-date schedule, an amount that can
// be partially paid down, and the four timestamps named in spec.md §4.7:
// recorded <= due <= overdue? <= liquidation?.
type Obligation struct {
	ID           ids.ObligationID
	FacilityID   ids.FacilityID
	DisbursalID  ids.DisbursalID // zero value unless Type == Disbursed
	Type         Type
	InitialAmount money.UsdCents
	Outstanding  money.UsdCents
	Status       Status

	RecordedAt    time.Time
	DueAt         time.Time
	OverdueAt     *time.Time
	LiquidationAt *time.Time

	Allocations []Allocation

	history []eventsourcing.Event
}

func (o *Obligation) Apply(e eventsourcing.Event) {
	o.history = append(o.history, e)
	switch ev := e.(type) {
	case Created:
		o.ID = ev.ObligationID
		o.FacilityID = ev.FacilityID
		o.DisbursalID = ev.DisbursalID
		o.Type = ev.Type
		o.InitialAmount = ev.Amount
		o.Outstanding = ev.Amount
		o.Status = NotYetDue
		o.RecordedAt = ev.RecordedAt
		o.DueAt = ev.DueAt
		o.OverdueAt = ev.OverdueAt
		o.LiquidationAt = ev.LiquidationAt
	case BecameDue:
		o.Status = Due
	case BecameOverdue:
		o.Status = Overdue
	case Defaulted_:
		o.Status = Defaulted
	case Allocated:
		o.Outstanding -= ev.Amount
		o.Allocations = append(o.Allocations, Allocation{PaymentID: ev.PaymentID, Amount: ev.Amount, AppliedAt: ev.AppliedAt})
	case Completed:
		o.Status = Paid
	}
}

// Replay rebuilds an obligation from its event log.
func Replay(events []eventsourcing.EventEnvelope) *Obligation {
	o := &Obligation{}
	for _, e := range events {
		o.Apply(e.Payload)
	}
	return o
}

// NewParams bundles Create's inputs.
type NewParams struct {
	FacilityID    ids.FacilityID
	DisbursalID   ids.DisbursalID
	Type          Type
	Amount        money.UsdCents
	DueAt         time.Time
	OverdueAt     *time.Time
	LiquidationAt *time.Time
	Now           time.Time
}

// Create constructs a fresh obligation — by disbursal settlement (Type ==
// Disbursed) or by accrual-cycle conclusion (Type == Interest), per
// spec.md §4.7 "Created by disbursal approval or by accrual-cycle
// conclusion."
func Create(p NewParams) (*Obligation, []eventsourcing.Event) {
	evt := Created{
		ObligationID:  ids.NewObligationID(),
		FacilityID:    p.FacilityID,
		DisbursalID:   p.DisbursalID,
		Type:          p.Type,
		Amount:        p.Amount,
		RecordedAt:    p.Now,
		DueAt:         p.DueAt,
		OverdueAt:     p.OverdueAt,
		LiquidationAt: p.LiquidationAt,
	}
	o := &Obligation{}
	o.Apply(evt)
	return o, []eventsourcing.Event{evt}
}

// BecomeDue transitions NotYetDue -> Due. Idempotent.
func (o *Obligation) BecomeDue(now time.Time) (eventsourcing.Idempotent[struct{}], []eventsourcing.Event) {
	if o.Status != NotYetDue {
		return eventsourcing.Ignored[struct{}](), nil
	}
	evt := BecameDue{ObligationID: o.ID, EffectiveAt: now}
	o.Apply(evt)
	return eventsourcing.Executed(struct{}{}), []eventsourcing.Event{evt}
}

// BecomeOverdue transitions Due -> Overdue. Permitted only from Due
// (spec.md §4.7); a no-op from any other status.
func (o *Obligation) BecomeOverdue(now time.Time) (eventsourcing.Idempotent[struct{}], []eventsourcing.Event) {
	if o.Status != Due {
		return eventsourcing.Ignored[struct{}](), nil
	}
	evt := BecameOverdue{ObligationID: o.ID, EffectiveAt: now}
	o.Apply(evt)
	return eventsourcing.Executed(struct{}{}), []eventsourcing.Event{evt}
}

// Default transitions Overdue -> Defaulted. Permitted only from Overdue; a
// no-op if already Defaulted or Paid (spec.md §4.7).
func (o *Obligation) Default(now time.Time) (eventsourcing.Idempotent[struct{}], []eventsourcing.Event) {
	if o.Status != Overdue {
		return eventsourcing.Ignored[struct{}](), nil
	}
	evt := Defaulted_{ObligationID: o.ID, EffectiveAt: now}
	o.Apply(evt)
	return eventsourcing.Executed(struct{}{}), []eventsourcing.Event{evt}
}

// AllocatePayment applies a non-negative amount clamped at the remaining
// outstanding balance, from any non-terminal status, driving the
// obligation to Paid when outstanding reaches zero (spec.md §4.7).
func (o *Obligation) AllocatePayment(paymentID ids.PaymentID, amount money.UsdCents, effective time.Time) (eventsourcing.Idempotent[money.UsdCents], []eventsourcing.Event) {
	if o.Status == Paid || amount <= 0 || o.Outstanding == 0 {
		return eventsourcing.Ignored[money.UsdCents](), nil
	}
	applied := amount
	if applied > o.Outstanding {
		applied = o.Outstanding
	}

	evt := Allocated{ObligationID: o.ID, PaymentID: paymentID, Amount: applied, AppliedAt: effective}
	o.Apply(evt)
	events := []eventsourcing.Event{evt}

	if o.Outstanding == 0 {
		completed := Completed{ObligationID: o.ID, EffectiveAt: effective}
		o.Apply(completed)
		events = append(events, completed)
	}
	return eventsourcing.Executed(applied), events
}
