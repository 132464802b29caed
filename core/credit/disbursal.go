package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// DisbursalStatus is the small sub-lifecycle of one disbursal against a
// facility (spec.md §6 event vocabulary; shape from
// original_source/core/credit/src/disbursal/mod.rs, not otherwise detailed
// by spec.md §3 — see SPEC_FULL.md §4.2).
type DisbursalStatus int

const (
	DisbursalInitiatedStatus DisbursalStatus = iota
	DisbursalSettledStatus
	DisbursalCancelledStatus
)

// Disbursal is a small event-sourced value owned by CreditFacility. It does
// not talk to a payout rail itself — only emits the ledger-transaction
// requests named in spec.md §6.
type Disbursal struct {
	ID           ids.DisbursalID
	FacilityID   ids.FacilityID
	Amount       money.UsdCents
	Status       DisbursalStatus
	ObligationID ids.ObligationID
	InitiatedAt  time.Time
	SettledAt    *time.Time
	CancelledAt  *time.Time
}

// NewDisbursal constructs and initiates a disbursal, returning both the
// value and the events to persist alongside the owning facility's log
// (spec.md §9, "nested event-sourced collections" — disbursals interleave
// in the facility's log by the same allowance).
func NewDisbursal(facilityID ids.FacilityID, amount money.UsdCents, now time.Time) (*Disbursal, []eventsourcing.Event) {
	d := &Disbursal{
		ID:          ids.NewDisbursalID(),
		FacilityID:  facilityID,
		Amount:      amount,
		Status:      DisbursalInitiatedStatus,
		InitiatedAt: now,
	}
	evt := DisbursalInitiated{FacilityID: facilityID, DisbursalID: d.ID, Amount: amount, InitiatedAt: now}
	return d, []eventsourcing.Event{evt}
}

// Settle marks the disbursal settled once the ledger confirms the
// transfer, recording the disbursal obligation created for it. Idempotent:
// settling an already-settled disbursal is a no-op.
func (d *Disbursal) Settle(obligationID ids.ObligationID, now time.Time) []eventsourcing.Event {
	if d.Status != DisbursalInitiatedStatus {
		return nil
	}
	d.Status = DisbursalSettledStatus
	d.ObligationID = obligationID
	d.SettledAt = &now
	return []eventsourcing.Event{
		DisbursalSettled{FacilityID: d.FacilityID, DisbursalID: d.ID, ObligationID: obligationID, SettledAt: now},
	}
}

// Cancel marks the disbursal cancelled (e.g. the ledger rejected it).
// Idempotent.
func (d *Disbursal) Cancel(now time.Time) []eventsourcing.Event {
	if d.Status != DisbursalInitiatedStatus {
		return nil
	}
	d.Status = DisbursalCancelledStatus
	d.CancelledAt = &now
	return []eventsourcing.Event{
		DisbursalCancelled{FacilityID: d.FacilityID, DisbursalID: d.ID, CancelledAt: now},
	}
}
