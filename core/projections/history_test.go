package projections

import (
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/obligation"
)

func TestHistoryApplyEnvelopeTracksSequencePerSource(t *testing.T) {
	facilityID := ids.NewFacilityID()
	obligationID := ids.NewObligationID()
	activatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	var h History
	h.ApplyEnvelope("facility", eventsourcing.EventEnvelope{
		Sequence:   1,
		RecordedAt: activatedAt,
		Payload:    credit.FacilityInitialized{ActivatedAt: activatedAt},
	})

	// The obligation stream also starts at sequence 1. A single shared
	// watermark would treat this as already-applied and drop it.
	h.ApplyEnvelope("obligation:"+obligationID.String(), eventsourcing.EventEnvelope{
		Sequence:   1,
		RecordedAt: createdAt,
		Payload: obligation.Created{
			ObligationID: obligationID,
			FacilityID:   facilityID,
			RecordedAt:   createdAt,
		},
	})

	if len(h.Entries) != 2 {
		t.Fatalf("expected 2 entries folded from two independently-sequenced streams, got %d", len(h.Entries))
	}
}

func TestHistoryApplyEnvelopeIsIdempotentPerSource(t *testing.T) {
	facilityID := ids.NewFacilityID()
	activatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env := eventsourcing.EventEnvelope{
		Sequence:   1,
		RecordedAt: activatedAt,
		Payload:    credit.FacilityInitialized{ActivatedAt: activatedAt},
	}

	var h History
	h.ApplyEnvelope(facilityID.String(), env)
	h.ApplyEnvelope(facilityID.String(), env)

	if len(h.Entries) != 1 {
		t.Fatalf("expected replaying the same envelope to be a no-op, got %d entries", len(h.Entries))
	}
}

func TestHistoryOrderedSortsAcrossStreamsByOccurrence(t *testing.T) {
	obligationID := ids.NewObligationID()
	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var h History
	// Folded in facility-then-obligation order, but the obligation event
	// actually occurred first.
	h.ApplyEnvelope("facility", eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  credit.FacilityInitialized{ActivatedAt: later},
	})
	h.ApplyEnvelope("obligation:"+obligationID.String(), eventsourcing.EventEnvelope{
		Sequence: 1,
		Payload:  obligation.Created{ObligationID: obligationID, RecordedAt: earlier},
	})

	ordered := h.Ordered()
	if len(ordered) != 2 {
		t.Fatalf("expected 2 ordered entries, got %d", len(ordered))
	}
	if ordered[0].Kind != HistoryObligationCreated {
		t.Fatalf("expected the earlier-occurring obligation entry first, got %v", ordered[0].Kind)
	}
	if ordered[1].Kind != HistoryActivated {
		t.Fatalf("expected the later-occurring activation entry second, got %v", ordered[1].Kind)
	}
}
