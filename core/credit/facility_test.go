package credit

import (
	"errors"
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

func newTestFacility(t *testing.T) *CreditFacility {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	builder := &NewFacilityBuilder{
		FacilityID: ids.NewFacilityID(),
		Terms:      baseTerms(),
		Amount:     money.UsdCents(50_000_00),
	}
	f, _ := Activate(builder, LedgerAccountIDs{}, now)
	return f
}

func TestActivateStartsActiveWithMaturity(t *testing.T) {
	f := newTestFacility(t)
	if f.Status != FacilityActive {
		t.Fatalf("expected FacilityActive, got %v", f.Status)
	}
	want := f.ActivatedAt.AddDate(0, 12, 0)
	if !f.MaturityDate.Equal(want) {
		t.Fatalf("expected maturity %s, got %s", want, f.MaturityDate)
	}
}

func TestMatureIsIdempotent(t *testing.T) {
	f := newTestFacility(t)
	now := time.Now()

	idem, events := f.Mature(now)
	if !idem.WasExecuted() || len(events) != 1 {
		t.Fatalf("expected the first Mature to execute")
	}
	if f.Status != FacilityMaturedStatus {
		t.Fatalf("expected FacilityMaturedStatus, got %v", f.Status)
	}

	idem, events = f.Mature(now)
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected a repeated Mature to be ignored")
	}
}

func TestCompleteRejectsOutstandingBalances(t *testing.T) {
	f := newTestFacility(t)
	balances := FacilityBalances{DisbursedDue: money.UsdCents(100_00)}
	if _, _, err := f.Complete(balances, time.Now()); !errors.Is(err, ErrOutstandingAmount) {
		t.Fatalf("expected ErrOutstandingAmount, got %v", err)
	}
}

func TestCompleteClosesAndReturnsResidualCollateral(t *testing.T) {
	f := newTestFacility(t)
	f.Collateral.Sats = money.Satoshis(12_345)

	idem, events, err := f.Complete(FacilityBalances{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	residual, ok := idem.Result()
	if !ok || residual != money.Satoshis(12_345) {
		t.Fatalf("expected residual collateral 12345, got %d ok=%v", residual, ok)
	}
	if len(events) != 1 {
		t.Fatalf("expected one FacilityCompleted event, got %d", len(events))
	}
	if f.Status != FacilityClosed {
		t.Fatalf("expected FacilityClosed, got %v", f.Status)
	}
}

func TestCompleteIsIdempotentOnceClosed(t *testing.T) {
	f := newTestFacility(t)
	f.Complete(FacilityBalances{}, time.Now())

	idem, events, err := f.Complete(FacilityBalances{}, time.Now())
	if err != nil {
		t.Fatalf("expected no error on a repeated completion, got %v", err)
	}
	if idem.WasExecuted() || events != nil {
		t.Fatalf("expected a repeated completion to be ignored")
	}
}

func TestUpdateCollateralizationHysteresisHoldsWithinBuffer(t *testing.T) {
	f := newTestFacility(t)
	price := money.PriceOfOneBTC(10_000_000) // $100,000.00/BTC
	balances := FacilityBalances{DisbursedNotYetDue: money.UsdCents(50_000_00)}
	now := time.Now()

	// 150% CVL: comfortably full.
	f.UpdateCollateral(money.Satoshis(75_000_000), UpdateSourceManual, ids.WalletID{}, now)
	idem := f.UpdateCollateralization(balances, price, now)
	state, ok := idem.Result()
	if !ok || state != FullyCollateralized {
		t.Fatalf("expected FullyCollateralized at 150%% CVL, got %v ok=%v", state, ok)
	}

	// 142% CVL: below the 145% upgrade buffer, but inside the hysteresis
	// band — holds at the last state rather than downgrading to MarginCall.
	f.UpdateCollateral(money.Satoshis(71_000_000), UpdateSourceManual, ids.WalletID{}, now)
	idem = f.UpdateCollateralization(balances, price, now)
	state, ok = idem.Result()
	if !ok || state != FullyCollateralized {
		t.Fatalf("expected hysteresis to hold at FullyCollateralized, got %v ok=%v", state, ok)
	}

	// 110% CVL: below the margin-call bar outright, overrides hysteresis.
	f.UpdateCollateral(money.Satoshis(55_000_000), UpdateSourceManual, ids.WalletID{}, now)
	idem = f.UpdateCollateralization(balances, price, now)
	state, ok = idem.Result()
	if !ok || state != UnderMarginCallCvl {
		t.Fatalf("expected UnderMarginCallCvl at 110%% CVL, got %v ok=%v", state, ok)
	}
}

func TestUpdateCollateralizationPinsClosedFacilityToNoCollateral(t *testing.T) {
	f := newTestFacility(t)
	now := time.Now()
	price := money.PriceOfOneBTC(10_000_000)
	balances := FacilityBalances{DisbursedNotYetDue: money.UsdCents(50_000_00)}

	f.UpdateCollateral(money.Satoshis(75_000_000), UpdateSourceManual, ids.WalletID{}, now)
	f.UpdateCollateralization(balances, price, now)
	if f.State != FullyCollateralized {
		t.Fatalf("setup failed: expected FullyCollateralized before closing, got %v", f.State)
	}

	// Complete() itself pins State to NoCollateral as part of closing.
	f.Complete(FacilityBalances{}, now)
	if f.State != NoCollateral {
		t.Fatalf("expected Complete to pin State to NoCollateral, got %v", f.State)
	}

	// Already NoCollateral: a reading on a closed facility is a no-op.
	idem := f.UpdateCollateralization(balances, price, now)
	if idem.WasExecuted() {
		t.Fatalf("expected a reading on an already-pinned closed facility to be ignored")
	}
}

func TestInitiateDisbursalRejectsPastMaturity(t *testing.T) {
	f := newTestFacility(t)
	past := f.MaturityDate.Add(time.Hour)
	if _, _, err := f.InitiateDisbursal(money.UsdCents(1_000_00), FacilityBalances{}, money.PriceOfOneBTC(10_000_000), past); !errors.Is(err, ErrDisbursalPastMaturity) {
		t.Fatalf("expected ErrDisbursalPastMaturity, got %v", err)
	}
}

func TestInitiateDisbursalRejectsBelowMarginLimit(t *testing.T) {
	f := newTestFacility(t)
	now := time.Now()
	// Zero collateral: any nonzero disbursal drives CVL to zero.
	if _, _, err := f.InitiateDisbursal(money.UsdCents(1_000_00), FacilityBalances{}, money.PriceOfOneBTC(10_000_000), now); !errors.Is(err, ErrBelowMarginLimit) {
		t.Fatalf("expected ErrBelowMarginLimit, got %v", err)
	}
}

func TestInitiateDisbursalSucceedsAboveMarginLimit(t *testing.T) {
	f := newTestFacility(t)
	now := time.Now()
	f.UpdateCollateral(money.Satoshis(75_000_000), UpdateSourceManual, ids.WalletID{}, now)

	d, events, err := f.InitiateDisbursal(money.UsdCents(10_000_00), FacilityBalances{}, money.PriceOfOneBTC(10_000_000), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil || d.Amount != money.UsdCents(10_000_00) || d.Status != DisbursalInitiatedStatus {
		t.Fatalf("unexpected disbursal: %+v", d)
	}
	if len(events) != 1 {
		t.Fatalf("expected one DisbursalInitiated event, got %d", len(events))
	}
	if len(f.Disbursals) != 1 || f.Disbursals[0].ID != d.ID {
		t.Fatalf("expected the disbursal to be tracked on the facility")
	}
}

func TestReplayFacilityRebuildsState(t *testing.T) {
	f := newTestFacility(t)
	now := time.Now()
	f.UpdateCollateral(money.Satoshis(75_000_000), UpdateSourceManual, ids.WalletID{}, now)
	f.InitiateDisbursal(money.UsdCents(1_000_00), FacilityBalances{}, money.PriceOfOneBTC(10_000_000), now)

	var envelopes []eventsourcing.EventEnvelope
	for i, e := range f.history {
		envelopes = append(envelopes, eventsourcing.EventEnvelope{Sequence: uint64(i + 1), Payload: e})
	}
	replayed := ReplayFacility(envelopes)
	if replayed.Status != f.Status || replayed.Collateral.Sats != f.Collateral.Sats {
		t.Fatalf("expected replayed facility to match original state")
	}
	if len(replayed.Disbursals) != len(f.Disbursals) {
		t.Fatalf("expected replayed disbursals to match, got %d vs %d", len(replayed.Disbursals), len(f.Disbursals))
	}
}
