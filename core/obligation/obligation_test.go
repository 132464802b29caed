package obligation

import (
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

func newTestObligation(t *testing.T) *Obligation {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o, _ := Create(NewParams{
		FacilityID: ids.NewFacilityID(),
		Type:       Disbursed,
		Amount:     money.UsdCents(1_000_00),
		DueAt:      now.AddDate(0, 1, 0),
		Now:        now,
	})
	return o
}

func TestCreateStartsNotYetDue(t *testing.T) {
	o := newTestObligation(t)
	if o.Status != NotYetDue {
		t.Fatalf("expected NotYetDue, got %s", o.Status)
	}
	if o.Outstanding != o.InitialAmount {
		t.Fatalf("expected outstanding to equal the initial amount, got %d vs %d", o.Outstanding, o.InitialAmount)
	}
}

func TestBecomeDueTransitionsAndIsIdempotent(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()

	idem, events := o.BecomeDue(now)
	if !idem.WasExecuted() || len(events) != 1 {
		t.Fatalf("expected the first BecomeDue to execute, got idem=%v events=%d", idem.WasExecuted(), len(events))
	}
	if o.Status != Due {
		t.Fatalf("expected Due, got %s", o.Status)
	}

	idem, events = o.BecomeDue(now)
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected a repeated BecomeDue to be ignored, got idem=%v events=%v", idem.WasExecuted(), events)
	}
}

func TestBecomeOverdueRequiresDue(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()

	idem, events := o.BecomeOverdue(now)
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected BecomeOverdue from NotYetDue to be ignored, got idem=%v", idem.WasExecuted())
	}

	o.BecomeDue(now)
	idem, events = o.BecomeOverdue(now)
	if !idem.WasExecuted() || len(events) != 1 {
		t.Fatalf("expected BecomeOverdue from Due to execute")
	}
	if o.Status != Overdue {
		t.Fatalf("expected Overdue, got %s", o.Status)
	}
}

func TestDefaultRequiresOverdue(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()

	if idem, _ := o.Default(now); idem.WasExecuted() {
		t.Fatalf("expected Default from NotYetDue to be ignored")
	}

	o.BecomeDue(now)
	o.BecomeOverdue(now)
	idem, events := o.Default(now)
	if !idem.WasExecuted() || len(events) != 1 {
		t.Fatalf("expected Default from Overdue to execute")
	}
	if o.Status != Defaulted {
		t.Fatalf("expected Defaulted, got %s", o.Status)
	}

	// Already terminal: a second Default is a no-op.
	idem, events = o.Default(now)
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected a repeated Default to be ignored")
	}
}

func TestAllocatePaymentClampsAtOutstandingAndCompletes(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()

	idem, events := o.AllocatePayment(ids.NewPaymentID(), money.UsdCents(1_500_00), now)
	applied, ok := idem.Result()
	if !ok || applied != money.UsdCents(1_000_00) {
		t.Fatalf("expected the overpayment to clamp at 1000.00, got %v ok=%v", applied, ok)
	}
	if len(events) != 2 {
		t.Fatalf("expected an Allocated event followed by a Completed event, got %d", len(events))
	}
	if o.Status != Paid {
		t.Fatalf("expected Paid once outstanding reaches zero, got %s", o.Status)
	}
	if o.Outstanding != 0 {
		t.Fatalf("expected zero outstanding, got %d", o.Outstanding)
	}
	if len(o.Allocations) != 1 {
		t.Fatalf("expected one allocation recorded, got %d", len(o.Allocations))
	}
}

func TestAllocatePaymentPartialLeavesOutstandingAndStatus(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()
	o.BecomeDue(now)

	idem, events := o.AllocatePayment(ids.NewPaymentID(), money.UsdCents(400_00), now)
	applied, ok := idem.Result()
	if !ok || applied != money.UsdCents(400_00) {
		t.Fatalf("expected 400.00 applied, got %v ok=%v", applied, ok)
	}
	if len(events) != 1 {
		t.Fatalf("expected only an Allocated event for a partial payment, got %d", len(events))
	}
	if o.Outstanding != money.UsdCents(600_00) {
		t.Fatalf("expected 600.00 remaining, got %s", o.Outstanding)
	}
	if o.Status != Due {
		t.Fatalf("expected status to remain Due after a partial payment, got %s", o.Status)
	}
}

func TestAllocatePaymentIgnoresZeroAmount(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()

	if idem, events := o.AllocatePayment(ids.NewPaymentID(), 0, now); idem.WasExecuted() || events != nil {
		t.Fatalf("expected a zero payment to be ignored")
	}
}

func TestAllocatePaymentIgnoredOncePaid(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()
	o.AllocatePayment(ids.NewPaymentID(), o.InitialAmount, now)
	if o.Status != Paid {
		t.Fatalf("setup failed: expected Paid, got %s", o.Status)
	}

	idem, events := o.AllocatePayment(ids.NewPaymentID(), money.UsdCents(1_00), now)
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected payments against a Paid obligation to be ignored")
	}
}

func TestReplayRebuildsEquivalentState(t *testing.T) {
	o := newTestObligation(t)
	now := time.Now()
	o.BecomeDue(now)
	o.AllocatePayment(ids.NewPaymentID(), money.UsdCents(250_00), now)

	var envelopes []eventsourcing.EventEnvelope
	for i, e := range o.history {
		envelopes = append(envelopes, eventsourcing.EventEnvelope{Sequence: uint64(i + 1), Payload: e})
	}

	replayed := Replay(envelopes)
	if replayed.Status != o.Status {
		t.Fatalf("expected replayed status %s to match %s", replayed.Status, o.Status)
	}
	if replayed.Outstanding != o.Outstanding {
		t.Fatalf("expected replayed outstanding %s to match %s", replayed.Outstanding, o.Outstanding)
	}
	if len(replayed.Allocations) != len(o.Allocations) {
		t.Fatalf("expected replayed allocations to match, got %d vs %d", len(replayed.Allocations), len(o.Allocations))
	}
}
