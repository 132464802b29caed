// Package projections implements the two read models specified in
// spec.md §4.9: a per-facility history projection and a repayment-plan
// projection, both rebuilt by folding the core's event vocabulary and
// persisted via core/eventstore's BlobStore so they survive restarts.
package projections

import (
	"context"
	"sort"
	"time"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/obligation"
)

// HistoryEntryKind discriminates the domain-level happenings tracked by
// the history projection (spec.md §4.9).
type HistoryEntryKind string

const (
	HistoryProposalCreated        HistoryEntryKind = "proposal_created"
	HistoryProposalApproved       HistoryEntryKind = "proposal_approved"
	HistoryProposalDenied         HistoryEntryKind = "proposal_denied"
	HistoryCollateralUpdated      HistoryEntryKind = "collateral_updated"
	HistoryActivated              HistoryEntryKind = "activated"
	HistoryAccrualPosted          HistoryEntryKind = "accrual_posted"
	HistoryObligationCreated      HistoryEntryKind = "obligation_created"
	HistoryObligationDue          HistoryEntryKind = "obligation_due"
	HistoryObligationOverdue      HistoryEntryKind = "obligation_overdue"
	HistoryObligationDefaulted    HistoryEntryKind = "obligation_defaulted"
	HistoryObligationCompleted    HistoryEntryKind = "obligation_completed"
	HistoryDisbursalSettled       HistoryEntryKind = "disbursal_settled"
	HistoryRepaymentRecorded      HistoryEntryKind = "repayment_recorded"
	HistoryCompleted              HistoryEntryKind = "completed"
)

// HistoryEntry is one ordered row in a facility's history (spec.md §4.9).
type HistoryEntry struct {
	Sequence   uint64
	Kind       HistoryEntryKind
	OccurredAt time.Time
}

// History is the per-facility projected state, folded from more than one
// event stream (the facility's own, plus one per obligation it has ever
// created) — each stream numbers its sequences independently, so
// idempotency is tracked per source rather than by a single watermark.
type History struct {
	LastSequence map[string]uint64
	Entries      []HistoryEntry
}

// ApplyEnvelope folds one event envelope from the named source stream into
// the history. Idempotent per source: an envelope at or before that
// source's last-applied sequence is skipped, so replaying from sequence 0
// on any stream reproduces an identical list (spec.md §4.9).
func (h *History) ApplyEnvelope(source string, env eventsourcing.EventEnvelope) {
	if h.LastSequence == nil {
		h.LastSequence = make(map[string]uint64)
	}
	if env.Sequence <= h.LastSequence[source] {
		return
	}
	if kind, occurredAt, ok := historyKindFor(env.Payload); ok {
		h.Entries = append(h.Entries, HistoryEntry{Sequence: env.Sequence, Kind: kind, OccurredAt: occurredAt})
	}
	h.LastSequence[source] = env.Sequence
}

// Ordered returns the history's entries ordered by when they occurred,
// since entries folded from different streams arrive in source order, not
// wall-clock order.
func (h *History) Ordered() []HistoryEntry {
	ordered := make([]HistoryEntry, len(h.Entries))
	copy(ordered, h.Entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OccurredAt.Before(ordered[j].OccurredAt) })
	return ordered
}

func historyKindFor(e eventsourcing.Event) (HistoryEntryKind, time.Time, bool) {
	switch ev := e.(type) {
	case credit.ProposalInitialized:
		return HistoryProposalCreated, ev.CreatedAt, true
	case credit.ProposalApprovalConcluded:
		if ev.Approved {
			return HistoryProposalApproved, ev.ConcludedAt, true
		}
		return HistoryProposalDenied, ev.ConcludedAt, true
	case credit.FacilityCollateralUpdated:
		return HistoryCollateralUpdated, ev.EffectiveAt, true
	case credit.FacilityInitialized:
		return HistoryActivated, ev.ActivatedAt, true
	case credit.FacilityAccrualCycleConcluded:
		return HistoryAccrualPosted, ev.ConcludedAt, true
	case credit.DisbursalSettled:
		return HistoryDisbursalSettled, ev.SettledAt, true
	case credit.FacilityCompleted:
		return HistoryCompleted, ev.CompletedAt, true
	case obligation.Created:
		return HistoryObligationCreated, ev.RecordedAt, true
	case obligation.BecameDue:
		return HistoryObligationDue, ev.EffectiveAt, true
	case obligation.BecameOverdue:
		return HistoryObligationOverdue, ev.EffectiveAt, true
	case obligation.Defaulted_:
		return HistoryObligationDefaulted, ev.EffectiveAt, true
	case obligation.Allocated:
		return HistoryRepaymentRecorded, ev.AppliedAt, true
	case obligation.Completed:
		return HistoryObligationCompleted, ev.EffectiveAt, true
	default:
		return "", time.Time{}, false
	}
}

// HistoryProjectionName scopes the shared BlobStore table to this
// projection.
const HistoryProjectionName = "facility_history"

// HistoryProjector loads, advances, and persists a facility's History.
type HistoryProjector struct {
	blobs *eventstore.BlobStore
}

// NewHistoryProjector wires the projection to its backing blob store.
func NewHistoryProjector(store *eventstore.BlobStore) *HistoryProjector {
	return &HistoryProjector{blobs: store}
}

// Load fetches the current projected state for a facility, returning a
// fresh zero-value History if nothing has been saved yet.
func (p *HistoryProjector) Load(ctx context.Context, facilityID string) (*History, error) {
	var h History
	_, _, err := p.blobs.Load(ctx, facilityID, &h)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Apply folds new envelopes from one source stream into h and persists the
// result. Call once per stream (the facility's own, then each obligation
// it has created) to fully advance a facility's history.
func (p *HistoryProjector) Apply(ctx context.Context, facilityID string, h *History, source string, envelopes []eventsourcing.EventEnvelope) error {
	for _, env := range envelopes {
		h.ApplyEnvelope(source, env)
	}
	return p.blobs.Save(ctx, facilityID, h.LastSequence[source], h)
}
