package projections

import (
	"context"
	"sort"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
	"github.com/HonestMajority/lana-bank/core/obligation"
)

// PlanEntryType discriminates the three kinds of expected/actual payment
// the repayment plan tracks (spec.md §4.9).
type PlanEntryType string

const (
	PlanStructuringFee PlanEntryType = "structuring_fee"
	PlanDisbursal      PlanEntryType = "disbursal"
	PlanInterest       PlanEntryType = "interest"
)

// PlanEntry is one expected-or-actual payment row (spec.md §4.9).
type PlanEntry struct {
	ObligationID ids.ObligationID
	Type         PlanEntryType
	Amount       money.UsdCents
	DueAt        time.Time
	Status       obligation.Status
	Outstanding  money.UsdCents
}

// RepaymentPlan is the per-facility projected state, folded from one
// event stream per obligation the facility has created — each numbers its
// sequences independently, so idempotency is tracked per source.
type RepaymentPlan struct {
	LastSequence map[string]uint64
	Entries      []PlanEntry
}

// Ordered returns the plan's entries ordered by due date (spec.md §4.9).
func (r *RepaymentPlan) Ordered() []PlanEntry {
	ordered := make([]PlanEntry, len(r.Entries))
	copy(ordered, r.Entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DueAt.Before(ordered[j].DueAt) })
	return ordered
}

func (r *RepaymentPlan) entryIndex(id ids.ObligationID) int {
	for i, e := range r.Entries {
		if e.ObligationID == id {
			return i
		}
	}
	return -1
}

// ApplyEnvelope folds one event envelope from the named source stream
// (the creating obligation's id) into the plan. Idempotent per source.
func (r *RepaymentPlan) ApplyEnvelope(source string, env eventsourcing.EventEnvelope, disbursalIsStructuringFee map[ids.DisbursalID]bool) {
	if r.LastSequence == nil {
		r.LastSequence = make(map[string]uint64)
	}
	if env.Sequence <= r.LastSequence[source] {
		return
	}
	switch ev := env.Payload.(type) {
	case obligation.Created:
		entryType := PlanInterest
		if !ev.DisbursalID.IsZero() {
			entryType = PlanDisbursal
			if disbursalIsStructuringFee[ev.DisbursalID] {
				entryType = PlanStructuringFee
			}
		}
		r.Entries = append(r.Entries, PlanEntry{
			ObligationID: ev.ObligationID,
			Type:         entryType,
			Amount:       ev.Amount,
			DueAt:        ev.DueAt,
			Status:       obligation.NotYetDue,
			Outstanding:  ev.Amount,
		})
	case obligation.BecameDue:
		if i := r.entryIndex(ev.ObligationID); i >= 0 {
			r.Entries[i].Status = obligation.Due
		}
	case obligation.BecameOverdue:
		if i := r.entryIndex(ev.ObligationID); i >= 0 {
			r.Entries[i].Status = obligation.Overdue
		}
	case obligation.Defaulted_:
		if i := r.entryIndex(ev.ObligationID); i >= 0 {
			r.Entries[i].Status = obligation.Defaulted
		}
	case obligation.Allocated:
		if i := r.entryIndex(ev.ObligationID); i >= 0 {
			r.Entries[i].Outstanding -= ev.Amount
		}
	case obligation.Completed:
		if i := r.entryIndex(ev.ObligationID); i >= 0 {
			r.Entries[i].Status = obligation.Paid
			r.Entries[i].Outstanding = 0
		}
	}
	r.LastSequence[source] = env.Sequence
}

// RepaymentPlanProjectionName scopes the shared BlobStore table to this
// projection.
const RepaymentPlanProjectionName = "facility_repayment_plan"

// RepaymentPlanProjector loads, advances, and persists a facility's plan.
type RepaymentPlanProjector struct {
	blobs *eventstore.BlobStore
}

// NewRepaymentPlanProjector wires the projection to its backing blob
// store.
func NewRepaymentPlanProjector(store *eventstore.BlobStore) *RepaymentPlanProjector {
	return &RepaymentPlanProjector{blobs: store}
}

// Load fetches the current projected state for a facility.
func (p *RepaymentPlanProjector) Load(ctx context.Context, facilityID string) (*RepaymentPlan, error) {
	var plan RepaymentPlan
	_, _, err := p.blobs.Load(ctx, facilityID, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Apply folds new envelopes from one obligation's stream into plan and
// persists the result. Call once per obligation the facility has created.
func (p *RepaymentPlanProjector) Apply(ctx context.Context, facilityID string, plan *RepaymentPlan, source string, envelopes []eventsourcing.EventEnvelope, disbursalIsStructuringFee map[ids.DisbursalID]bool) error {
	for _, env := range envelopes {
		plan.ApplyEnvelope(source, env, disbursalIsStructuringFee)
	}
	return p.blobs.Save(ctx, facilityID, plan.LastSequence[source], plan)
}
