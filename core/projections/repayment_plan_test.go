package projections

import (
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
	"github.com/HonestMajority/lana-bank/core/obligation"
)

func TestRepaymentPlanApplyEnvelopeTracksSequencePerObligation(t *testing.T) {
	interestID := ids.NewObligationID()
	disbursalID := ids.NewObligationID()
	dueAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var plan RepaymentPlan
	// Both obligation streams start numbering at sequence 1.
	plan.ApplyEnvelope(interestID.String(), eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: interestID, Amount: money.UsdCents(500), DueAt: dueAt},
	}, nil)
	plan.ApplyEnvelope(disbursalID.String(), eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: disbursalID, DisbursalID: ids.NewDisbursalID(), Amount: money.UsdCents(10_000), DueAt: dueAt},
	}, nil)

	if len(plan.Entries) != 2 {
		t.Fatalf("expected one entry per obligation stream, got %d", len(plan.Entries))
	}
}

func TestRepaymentPlanApplyEnvelopeMarksStructuringFee(t *testing.T) {
	obligationID := ids.NewObligationID()
	disbursalID := ids.NewDisbursalID()
	isFee := map[ids.DisbursalID]bool{disbursalID: true}

	var plan RepaymentPlan
	plan.ApplyEnvelope(obligationID.String(), eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: obligationID, DisbursalID: disbursalID, Amount: money.UsdCents(1_000)},
	}, isFee)

	if len(plan.Entries) != 1 || plan.Entries[0].Type != PlanStructuringFee {
		t.Fatalf("expected the entry to be classified as a structuring fee, got %+v", plan.Entries)
	}
}

func TestRepaymentPlanApplyEnvelopeTracksOutstandingAcrossAllocations(t *testing.T) {
	obligationID := ids.NewObligationID()

	var plan RepaymentPlan
	plan.ApplyEnvelope(obligationID.String(), eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: obligationID, Amount: money.UsdCents(1_000)},
	}, nil)
	plan.ApplyEnvelope(obligationID.String(), eventsourcing.EventEnvelope{
		Sequence: 2,
		Payload:  obligation.Allocated{ObligationID: obligationID, Amount: money.UsdCents(400)},
	}, nil)

	if len(plan.Entries) != 1 || plan.Entries[0].Outstanding != money.UsdCents(600) {
		t.Fatalf("expected outstanding to be reduced by the allocation, got %+v", plan.Entries)
	}

	plan.ApplyEnvelope(obligationID.String(), eventsourcing.EventEnvelope{
		Sequence: 3,
		Payload:  obligation.Completed{ObligationID: obligationID},
	}, nil)
	if plan.Entries[0].Status != obligation.Paid || plan.Entries[0].Outstanding != 0 {
		t.Fatalf("expected completion to zero the outstanding balance, got %+v", plan.Entries[0])
	}
}

func TestRepaymentPlanApplyEnvelopeIsIdempotentPerSource(t *testing.T) {
	obligationID := ids.NewObligationID()
	env := eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: obligationID, Amount: money.UsdCents(1_000)},
	}

	var plan RepaymentPlan
	plan.ApplyEnvelope(obligationID.String(), env, nil)
	plan.ApplyEnvelope(obligationID.String(), env, nil)

	if len(plan.Entries) != 1 {
		t.Fatalf("expected replaying the same envelope to be a no-op, got %d entries", len(plan.Entries))
	}
}
