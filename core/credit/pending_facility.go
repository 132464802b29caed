package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// PendingCreditFacility is the post-approval, pre-activation stage (spec.md
// §3, §4.3). It shares its id with the originating proposal and, later,
// the activated CreditFacility.
type PendingCreditFacility struct {
	ID         ids.FacilityID
	Terms      TermValues
	Amount     money.UsdCents
	Collateral Collateral
	State      CollateralizationState
	LastRatio  money.CollateralizationRatio
	Status     PendingStatus

	history []eventsourcing.Event
}

func (f *PendingCreditFacility) Apply(e eventsourcing.Event) {
	f.history = append(f.history, e)
	switch ev := e.(type) {
	case PendingInitialized:
		f.ID = ev.FacilityID
		f.Terms = ev.Terms
		f.Amount = ev.Amount
		f.Collateral = Collateral{WalletID: ev.WalletID}
		f.State = NoCollateral
		f.Status = PendingOpen
	case PendingCollateralizationStateChanged:
		f.State = ev.State
	case PendingCollateralizationRatioChanged:
		f.LastRatio = ev.Ratio
	case FacilityCollateralUpdated:
		f.Collateral.Sats = ev.New
		f.Collateral.LastSource = ev.Source
		f.Collateral.UpdatedAt = ev.EffectiveAt
		if ev.Source == UpdateSourceWalletSync {
			f.Collateral.WalletID = ev.WalletID
		}
	case PendingCompleted:
		f.Status = PendingCompletedStatus
	}
}

// ReplayPendingFacility rebuilds a pending facility from its event log.
func ReplayPendingFacility(events []eventsourcing.EventEnvelope) *PendingCreditFacility {
	f := &PendingCreditFacility{}
	for _, e := range events {
		f.Apply(e.Payload)
	}
	return f
}

// NewPendingFacility materialises a PendingCreditFacility from an approved
// proposal's builder (spec.md §4.3).
func NewPendingFacility(b *NewPendingFacilityBuilder, walletID ids.WalletID, now time.Time) (*PendingCreditFacility, []eventsourcing.Event) {
	evt := PendingInitialized{FacilityID: b.FacilityID, Terms: b.Terms, Amount: b.Amount, WalletID: walletID, CreatedAt: now}
	f := &PendingCreditFacility{}
	f.Apply(evt)
	return f, []eventsourcing.Event{evt}
}

// UpdateCollateral records a new collateral balance and re-evaluates
// collateralization. Returns nil events if the balance did not change.
func (f *PendingCreditFacility) UpdateCollateral(sats money.Satoshis, source CollateralUpdateSource, walletID ids.WalletID, now time.Time) []eventsourcing.Event {
	if f.Collateral.Sats == sats {
		return nil
	}
	var old money.Satoshis
	if source == UpdateSourceWalletSync {
		old, _ = f.Collateral.ApplyWalletBalance(sats, walletID, now)
	} else {
		old, _ = f.Collateral.ApplyManual(sats, now)
	}
	evt := FacilityCollateralUpdated{FacilityID: f.ID, Old: old, New: sats, Source: source, WalletID: walletID, EffectiveAt: now}
	f.Apply(evt)
	return []eventsourcing.Event{evt}
}

// UpdateCollateralization recomputes CVL from the current collateral and
// the given price/balance read, emitting state/ratio-changed events as
// needed (spec.md §4.3). Idempotent: if nothing changed, returns Ignored.
func (f *PendingCreditFacility) UpdateCollateralization(price money.PriceOfOneBTC, now time.Time) eventsourcing.Idempotent[CollateralizationState] {
	cvl := FacilityAmountCVL(f.Collateral.Sats, f.Amount, price)
	nextRatio := cvl.AsRatio()

	nextState := NoCollateral
	if cvl.GreaterOrEqual(f.Terms.MarginCallCVL) {
		nextState = FullyCollateralized
	} else if cvl.GreaterOrEqual(f.Terms.LiquidationCVL) {
		nextState = UnderMarginCallCvl
	} else {
		nextState = UnderLiquidationCvl
	}

	stateChanged := nextState != f.State
	ratioChanged := !nextRatio.Equal(f.LastRatio)
	if !stateChanged && !ratioChanged {
		return eventsourcing.Ignored[CollateralizationState]()
	}
	if stateChanged {
		f.Apply(PendingCollateralizationStateChanged{FacilityID: f.ID, State: nextState, EffectiveAt: now})
	}
	if ratioChanged {
		f.Apply(PendingCollateralizationRatioChanged{FacilityID: f.ID, Ratio: nextRatio, EffectiveAt: now})
	}
	return eventsourcing.Executed(nextState)
}

// PendingEvents returns the events appended by the most recent mutator
// call, for callers that used UpdateCollateralization's in-place Apply
// rather than a returned slice.
func (f *PendingCreditFacility) PendingEvents(fromIndex int) []eventsourcing.Event {
	if fromIndex >= len(f.history) {
		return nil
	}
	return f.history[fromIndex:]
}

// NewFacilityBuilder carries the data needed to activate a CreditFacility.
type NewFacilityBuilder struct {
	FacilityID ids.FacilityID
	Terms      TermValues
	Amount     money.UsdCents
	Collateral Collateral
}

// NewDisbursalBuilder carries the data for the pre-approved structuring-fee
// disbursal created at completion, when the fee is nonzero (spec.md §4.3).
type NewDisbursalBuilder struct {
	Amount money.UsdCents
}

// CompletionResult bundles the two builders Complete hands back to the
// facility service.
type CompletionResult struct {
	Facility  *NewFacilityBuilder
	Disbursal *NewDisbursalBuilder // nil when the structuring fee is zero
}

// Complete concludes the pending stage once collateralization clears the
// margin-call bar, returning builders for the new CreditFacility and,
// if the structuring fee is nonzero, a first disbursal for it (spec.md
// §4.3). Fails with ErrBelowMarginLimit if completion is not allowed yet.
func (f *PendingCreditFacility) Complete(price money.PriceOfOneBTC, now time.Time) (eventsourcing.Idempotent[CompletionResult], []eventsourcing.Event, error) {
	for i := len(f.history) - 1; i >= 0; i-- {
		if _, ok := f.history[i].(PendingCompleted); ok {
			return eventsourcing.Ignored[CompletionResult](), nil, nil
		}
	}
	if !IsProposalCompletionAllowed(f.Collateral.Sats, f.Amount, price, f.Terms) {
		return eventsourcing.Idempotent[CompletionResult]{}, nil, ErrBelowMarginLimit
	}

	evt := PendingCompleted{FacilityID: f.ID, CompletedAt: now}
	f.Apply(evt)

	result := CompletionResult{
		Facility: &NewFacilityBuilder{FacilityID: f.ID, Terms: f.Terms, Amount: f.Amount, Collateral: f.Collateral},
	}
	if fee := f.Terms.StructuringFee(f.Amount); fee > 0 {
		result.Disbursal = &NewDisbursalBuilder{Amount: fee}
	}
	return eventsourcing.Executed(result), []eventsourcing.Event{evt}, nil
}
