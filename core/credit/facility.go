package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// CreditFacility is the live facility (spec.md §3, §4.4).
type CreditFacility struct {
	ID           ids.FacilityID
	Principal    money.UsdCents
	Terms        TermValues
	Accounts     LedgerAccountIDs
	ActivatedAt  time.Time
	MaturityDate time.Time
	Status       FacilityStatus
	Collateral   Collateral
	State        CollateralizationState
	LastRatio    money.CollateralizationRatio

	// Cycles is the nested, facility-owned collection of accrual cycles
	// (spec.md §3, §9). Persisted together with the facility.
	Cycles []*InterestAccrualCycle

	Disbursals []*Disbursal

	history []eventsourcing.Event
}

func (f *CreditFacility) Apply(e eventsourcing.Event) {
	f.history = append(f.history, e)
	switch ev := e.(type) {
	case FacilityInitialized:
		f.ID = ev.FacilityID
		f.Principal = ev.Principal
		f.Terms = ev.Terms
		f.Accounts = ev.Accounts
		f.ActivatedAt = ev.ActivatedAt
		f.MaturityDate = ev.MaturityDate
		f.Status = FacilityActive
		f.State = NoCollateral
	case FacilityCollateralUpdated:
		f.Collateral.Sats = ev.New
		f.Collateral.LastSource = ev.Source
		f.Collateral.UpdatedAt = ev.EffectiveAt
		if ev.Source == UpdateSourceWalletSync {
			f.Collateral.WalletID = ev.WalletID
		}
	case FacilityCollateralizationStateChanged:
		f.State = ev.State
	case FacilityCollateralizationRatioChanged:
		f.LastRatio = ev.Ratio
	case FacilityAccrualCycleStarted:
		cycle := &InterestAccrualCycle{ID: ev.CycleID, FacilityID: ev.FacilityID, Index: ev.CycleIndex, Period: ev.Period, Terms: f.Terms}
		f.Cycles = append(f.Cycles, cycle)
	case FacilityAccrualCycleConcluded:
		if cycle := f.cycleByID(ev.CycleID); cycle != nil {
			cycle.Completed = true
			cycle.ObligationID = ev.ObligationID
		}
	case FacilityMatured:
		f.Status = FacilityMaturedStatus
	case FacilityCompleted:
		f.Status = FacilityClosed
		f.State = NoCollateral
	case DisbursalInitiated:
		f.Disbursals = append(f.Disbursals, &Disbursal{ID: ev.DisbursalID, FacilityID: ev.FacilityID, Amount: ev.Amount, Status: DisbursalInitiatedStatus, InitiatedAt: ev.InitiatedAt})
	case DisbursalSettled:
		if d := f.disbursalByID(ev.DisbursalID); d != nil {
			d.Status = DisbursalSettledStatus
			d.ObligationID = ev.ObligationID
			t := ev.SettledAt
			d.SettledAt = &t
		}
	case DisbursalCancelled:
		if d := f.disbursalByID(ev.DisbursalID); d != nil {
			d.Status = DisbursalCancelledStatus
			t := ev.CancelledAt
			d.CancelledAt = &t
		}
	}
}

func (f *CreditFacility) cycleByID(id ids.AccrualCycleID) *InterestAccrualCycle {
	for _, c := range f.Cycles {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (f *CreditFacility) disbursalByID(id ids.DisbursalID) *Disbursal {
	for _, d := range f.Disbursals {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// ReplayFacility rebuilds a facility from its event log, including its
// nested accrual-cycle collection (spec.md §8: replay is pure and total).
func ReplayFacility(events []eventsourcing.EventEnvelope) *CreditFacility {
	f := &CreditFacility{}
	for _, e := range events {
		f.Apply(e.Payload)
	}
	return f
}

// CurrentCycle returns the most recently started cycle, or nil if none has
// started yet.
func (f *CreditFacility) CurrentCycle() *InterestAccrualCycle {
	if len(f.Cycles) == 0 {
		return nil
	}
	return f.Cycles[len(f.Cycles)-1]
}

// Activate constructs a fresh CreditFacility from a pending-stage builder
// (spec.md §4.4: "given a (CreditFacilityBuilder, initial_disbursal?)").
// The maturity job, accrual-cycle start and any initial disbursal are
// orchestrated by the facility service (core/credit/service.go); this only
// builds the Initialized event.
func Activate(b *NewFacilityBuilder, accounts LedgerAccountIDs, now time.Time) (*CreditFacility, []eventsourcing.Event) {
	maturity := b.Terms.MaturityFrom(now)
	evt := FacilityInitialized{
		FacilityID:   b.FacilityID,
		Principal:    b.Amount,
		Terms:        b.Terms,
		Accounts:     accounts,
		ActivatedAt:  now,
		MaturityDate: maturity,
	}
	f := &CreditFacility{}
	f.Apply(evt)
	f.Collateral = b.Collateral
	return f, []eventsourcing.Event{evt}
}

// Mature transitions Active -> Matured. Idempotent: ignored if already
// matured or closed (spec.md §4.4).
func (f *CreditFacility) Mature(now time.Time) (eventsourcing.Idempotent[struct{}], []eventsourcing.Event) {
	if f.Status != FacilityActive {
		return eventsourcing.Ignored[struct{}](), nil
	}
	evt := FacilityMatured{FacilityID: f.ID, MaturedAt: now}
	f.Apply(evt)
	return eventsourcing.Executed(struct{}{}), []eventsourcing.Event{evt}
}

// Complete transitions Matured -> Closed (or Active -> Closed if everything
// is already settled), failing with ErrOutstandingAmount if any disbursed
// or interest bucket (including defaulted) is nonzero (spec.md §4.4).
func (f *CreditFacility) Complete(balances FacilityBalances, now time.Time) (eventsourcing.Idempotent[money.Satoshis], []eventsourcing.Event, error) {
	if f.Status == FacilityClosed {
		return eventsourcing.Ignored[money.Satoshis](), nil, nil
	}
	if balances.HasAnyOutstandingOrDefaulted() {
		return eventsourcing.Idempotent[money.Satoshis]{}, nil, ErrOutstandingAmount
	}
	evt := FacilityCompleted{FacilityID: f.ID, ResidualCollateral: f.Collateral.Sats, CompletedAt: now}
	f.Apply(evt)
	return eventsourcing.Executed(f.Collateral.Sats), []eventsourcing.Event{evt}, nil
}

// collateralizationBufferPoints is the 5%-point upgrade buffer named in
// spec.md §4.4.
const collateralizationBufferPoints = 5

// UpdateCollateralization recomputes CVL with the 5%-point upgrade buffer
// (hysteresis) and pins a closed facility to NoCollateral (spec.md §4.4).
func (f *CreditFacility) UpdateCollateralization(balances FacilityBalances, price money.PriceOfOneBTC, now time.Time) eventsourcing.Idempotent[CollateralizationState] {
	if f.Status == FacilityClosed {
		if f.State == NoCollateral {
			return eventsourcing.Ignored[CollateralizationState]()
		}
		f.Apply(FacilityCollateralizationStateChanged{FacilityID: f.ID, State: NoCollateral, EffectiveAt: now})
		return eventsourcing.Executed(NoCollateral)
	}

	balances.CollateralSats = f.Collateral.Sats
	cvl := CurrentCVL(balances, price)
	nextState := CollateralizationUpdate(cvl, f.State, collateralizationBufferPoints, false, f.Terms)
	nextRatio := cvl.AsRatio()

	stateChanged := nextState != f.State
	ratioChanged := !nextRatio.Equal(f.LastRatio)
	if !stateChanged && !ratioChanged {
		return eventsourcing.Ignored[CollateralizationState]()
	}
	if stateChanged {
		f.Apply(FacilityCollateralizationStateChanged{FacilityID: f.ID, State: nextState, EffectiveAt: now})
	}
	if ratioChanged {
		f.Apply(FacilityCollateralizationRatioChanged{FacilityID: f.ID, Ratio: nextRatio, EffectiveAt: now})
	}
	return eventsourcing.Executed(nextState)
}

// UpdateCollateral records a new collateral balance for the active
// facility.
func (f *CreditFacility) UpdateCollateral(sats money.Satoshis, source CollateralUpdateSource, walletID ids.WalletID, now time.Time) []eventsourcing.Event {
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

// StartInterestAccrualCycle starts the next cycle, failing with
// ErrInProgressAccrualCycleNotCompletedYet if the current one has not
// finished accruing, or ErrAccrualCycleInvalidFutureStartDate if the
// computed period starts in the future (spec.md §4.5). Returns (nil, nil,
// nil) when the maturity truncation yields an empty period — cycle
// generation has finished for this facility.
func (f *CreditFacility) StartInterestAccrualCycle(now time.Time) (*InterestAccrualCycle, []eventsourcing.Event, error) {
	current := f.CurrentCycle()
	if current != nil && !current.Completed {
		return nil, nil, ErrInProgressAccrualCycleNotCompletedYet
	}

	var previous *CyclePeriod
	nextIndex := FirstCycleIndex
	if current != nil {
		p := current.Period
		previous = &p
		nextIndex = current.Index + 1
	}
	period := NextCyclePeriod(f.ActivatedAt, previous, f.MaturityDate, f.Terms.CycleInterval)
	if period.IsEmpty() {
		return nil, nil, nil
	}

	cycle, events, err := StartInterestAccrualCycle(f.ID, nextIndex, period, f.Terms, now)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range events {
		f.Apply(e)
	}
	return cycle, events, nil
}

// RecordInterestAccrualCycle concludes the current cycle once it has
// reached its end and every step has been recorded, producing the
// obligation id to be created by the facility service (spec.md §4.5).
func (f *CreditFacility) RecordInterestAccrualCycle(obligationID ids.ObligationID, now time.Time) (eventsourcing.Idempotent[money.UsdCents], []eventsourcing.Event) {
	cycle := f.CurrentCycle()
	if cycle == nil || cycle.Completed {
		return eventsourcing.Ignored[money.UsdCents](), nil
	}
	result := cycle.Conclude(obligationID, now)
	if result.WasIgnored() {
		return eventsourcing.Ignored[money.UsdCents](), nil
	}
	total, _ := result.Result()
	obligation := ids.ObligationID{}
	if total > 0 {
		obligation = obligationID
	}
	evt := FacilityAccrualCycleConcluded{
		FacilityID:    f.ID,
		CycleID:       cycle.ID,
		CycleIndex:    cycle.Index,
		TotalInterest: total,
		ObligationID:  obligation,
		ConcludedAt:   now,
	}
	f.Apply(evt)
	return eventsourcing.Executed(total), []eventsourcing.Event{evt}
}

// InitiateDisbursal requests a new disbursal against the facility, failing
// with ErrDisbursalPastMaturity if now is past the maturity date (spec.md
// §7) or ErrBelowMarginLimit if it would breach the margin-call CVL
// (spec.md §4.6).
func (f *CreditFacility) InitiateDisbursal(amount money.UsdCents, balances FacilityBalances, price money.PriceOfOneBTC, now time.Time) (*Disbursal, []eventsourcing.Event, error) {
	if now.After(f.MaturityDate) {
		return nil, nil, ErrDisbursalPastMaturity
	}
	balances.CollateralSats = f.Collateral.Sats
	if !IsDisbursalAllowed(balances, amount, price, f.Terms) {
		return nil, nil, ErrBelowMarginLimit
	}
	d, events := NewDisbursal(f.ID, amount, now)
	for _, e := range events {
		f.Apply(e)
	}
	return d, events, nil
}
