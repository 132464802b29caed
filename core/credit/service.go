package credit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
	"github.com/HonestMajority/lana-bank/core/obligation"
)

// ProposalRepository persists and loads CreditFacilityProposal event logs.
type ProposalRepository interface {
	Load(ctx context.Context, id ids.FacilityID) (*CreditFacilityProposal, error)
	Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error
	NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error)
}

// PendingFacilityRepository persists and loads PendingCreditFacility event
// logs.
type PendingFacilityRepository interface {
	Load(ctx context.Context, id ids.FacilityID) (*PendingCreditFacility, error)
	Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error
	NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error)
	// ListOpen returns up to limit not-yet-completed pending facility ids
	// ordered after afterID, for the pending-facility collateralisation
	// sweep (spec.md §5).
	ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error)
}

// FacilityRepository persists and loads CreditFacility event logs.
type FacilityRepository interface {
	Load(ctx context.Context, id ids.FacilityID) (*CreditFacility, error)
	Append(ctx context.Context, id ids.FacilityID, nextSeq uint64, events []eventsourcing.Event) error
	NextSequence(ctx context.Context, id ids.FacilityID) (uint64, error)
	ListOpen(ctx context.Context, afterID ids.FacilityID, limit int) ([]ids.FacilityID, error)
}

// ObligationRepository persists and loads Obligation event logs, and
// indexes the next scheduled transition per obligation for the
// due/overdue/liquidation/defaulted jobs (spec.md §5).
type ObligationRepository interface {
	Load(ctx context.Context, id ids.ObligationID) (*obligation.Obligation, error)
	Append(ctx context.Context, id ids.ObligationID, nextSeq uint64, events []eventsourcing.Event) error
	NextSequence(ctx context.Context, id ids.ObligationID) (uint64, error)
	// ListDue returns up to limit non-terminal obligation ids whose next
	// scheduled timestamp (due/overdue/liquidation) is at or before asOf.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]ids.ObligationID, error)
	// ListByFacility returns every obligation id ever created against
	// facilityID, for AllocatePaymentAcrossFacility's priority ordering.
	ListByFacility(ctx context.Context, facilityID ids.FacilityID) ([]ids.ObligationID, error)
}

// Service orchestrates the proposal -> pending -> facility triad against
// its external collaborators (spec.md §1, §6). Every mutating method
// brackets a load, a pure aggregate transition, a collaborator call, and
// an optimistic-concurrency-guarded append, per spec.md §5.
type Service struct {
	Proposals        ProposalRepository
	PendingFacilities PendingFacilityRepository
	Facilities       FacilityRepository
	Obligations      ObligationRepository

	Ledger   LedgerClient
	Prices   PriceFeed
	Approval ApprovalProcess
	Publish  EventPublisher
}

func (s *Service) publishAll(ctx context.Context, events []eventsourcing.Event) error {
	if s.Publish == nil {
		return nil
	}
	for _, e := range events {
		if err := s.Publish.Publish(ctx, e); err != nil {
			return fmt.Errorf("publish %s: %w", e.EventType(), err)
		}
	}
	return nil
}

// CreateProposalRequest bundles RequestProposal's inputs.
type CreateProposalRequest struct {
	CustomerID       ids.CustomerID
	CustomerType     CustomerType
	CustodianID      ids.CustodianID
	Terms            TermValues
	Amount           money.UsdCents
	DisbursalAccount string
}

// RequestProposal validates terms, starts the external approval process,
// and persists a new CreditFacilityProposal (spec.md §4.2).
func (s *Service) RequestProposal(ctx context.Context, req CreateProposalRequest, now time.Time) (*CreditFacilityProposal, error) {
	if err := req.Terms.Validate(); err != nil {
		return nil, err
	}
	approvalID, err := s.Approval.Start(ctx, "credit_facility_proposal", req.CustomerID.String())
	if err != nil {
		return nil, fmt.Errorf("start approval: %w", err)
	}

	proposal, events := CreateProposal(NewProposalParams{
		CustomerID:        req.CustomerID,
		CustomerType:      req.CustomerType,
		CustodianID:       req.CustodianID,
		Terms:             req.Terms,
		Amount:            req.Amount,
		DisbursalAccount:  req.DisbursalAccount,
		ApprovalProcessID: approvalID,
		Now:               now,
	})
	if err := s.Proposals.Append(ctx, proposal.ID, 1, events); err != nil {
		return nil, err
	}
	if err := s.publishAll(ctx, events); err != nil {
		return nil, err
	}
	return proposal, nil
}

// ConcludeProposalApproval reacts to the approval process's conclusion,
// materialising a PendingCreditFacility on approval (spec.md §4.2-§4.3).
// Runs under RetryOnConcurrentModification since it can race
// with other mutators of the same proposal (there normally are none, but
// the guard is cheap insurance consistent with every other mutator here).
func (s *Service) ConcludeProposalApproval(ctx context.Context, proposalID ids.FacilityID, walletID ids.WalletID, approved bool, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		proposal, err := s.Proposals.Load(ctx, proposalID)
		if err != nil {
			return err
		}
		result, events := proposal.ConcludeApproval(approved, now)
		if result.WasIgnored() || len(events) == 0 {
			return nil
		}
		nextSeq, err := s.Proposals.NextSequence(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := s.Proposals.Append(ctx, proposalID, nextSeq, events); err != nil {
			return err
		}
		if err := s.publishAll(ctx, events); err != nil {
			return err
		}

		builder, ok := result.Result()
		if !ok || builder == nil {
			return nil
		}
		pending, pendingEvents := NewPendingFacility(builder, walletID, now)
		if err := s.PendingFacilities.Append(ctx, pending.ID, 1, pendingEvents); err != nil {
			return err
		}
		return s.publishAll(ctx, pendingEvents)
	})
}

// UpdatePendingCollateral records a new collateral reading against a
// pending facility and re-evaluates collateralization (spec.md §4.3).
func (s *Service) UpdatePendingCollateral(ctx context.Context, id ids.FacilityID, sats money.Satoshis, source CollateralUpdateSource, walletID ids.WalletID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		pending, err := s.PendingFacilities.Load(ctx, id)
		if err != nil {
			return err
		}
		events := pending.UpdateCollateral(sats, source, walletID, now)
		events = append(events, s.reevaluatePendingCollateralization(ctx, pending, now)...)
		if len(events) == 0 {
			return nil
		}
		nextSeq, err := s.PendingFacilities.NextSequence(ctx, id)
		if err != nil {
			return err
		}
		if err := s.PendingFacilities.Append(ctx, id, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
}

// RefreshPendingFacilityCollateralization re-reads the current BTC price and
// re-evaluates a pending facility's collateralization state, for the
// pending-facility variant of the collateralisation-from-price sweep
// (spec.md §5).
func (s *Service) RefreshPendingFacilityCollateralization(ctx context.Context, id ids.FacilityID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		pending, err := s.PendingFacilities.Load(ctx, id)
		if err != nil {
			return err
		}
		events := s.reevaluatePendingCollateralization(ctx, pending, now)
		if len(events) == 0 {
			return nil
		}
		nextSeq, err := s.PendingFacilities.NextSequence(ctx, id)
		if err != nil {
			return err
		}
		if err := s.PendingFacilities.Append(ctx, id, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
}

func (s *Service) reevaluatePendingCollateralization(ctx context.Context, pending *PendingCreditFacility, now time.Time) []eventsourcing.Event {
	price, err := s.Prices.BTCPriceUSD(ctx)
	if err != nil {
		return nil
	}
	before := len(pending.history)
	pending.UpdateCollateralization(price, now)
	return pending.PendingEvents(before)
}

// CompletePendingFacility activates the pending facility once
// collateralization clears the margin-call bar: the facility is persisted,
// its first accrual cycle is started and, if a structuring fee applies, the
// pre-approved fee disbursal is settled immediately against a freshly
// created disbursed obligation (spec.md §4.3-§4.4, DESIGN.md open question
// #3).
func (s *Service) CompletePendingFacility(ctx context.Context, id ids.FacilityID, accounts LedgerAccountIDs, now time.Time) (*CreditFacility, error) {
	var facility *CreditFacility
	err := eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		pending, err := s.PendingFacilities.Load(ctx, id)
		if err != nil {
			return err
		}
		price, err := s.Prices.BTCPriceUSD(ctx)
		if err != nil {
			return err
		}
		result, events, err := pending.Complete(price, now)
		if err != nil {
			return err
		}
		if result.WasIgnored() {
			return nil
		}
		nextSeq, err := s.PendingFacilities.NextSequence(ctx, id)
		if err != nil {
			return err
		}
		if err := s.PendingFacilities.Append(ctx, id, nextSeq, events); err != nil {
			return err
		}
		if err := s.publishAll(ctx, events); err != nil {
			return err
		}

		completion, _ := result.Result()
		key := LedgerTxKey{Entity: id.String(), Action: "activate"}
		if err := s.Ledger.ActivateFacility(ctx, key, id, accounts, completion.Facility.Amount); err != nil {
			return err
		}

		facility, events = Activate(completion.Facility, accounts, now)

		_, cycleEvents, err := facility.StartInterestAccrualCycle(now)
		if err != nil {
			return err
		}
		events = append(events, cycleEvents...)

		if completion.Disbursal != nil {
			d, disbursalEvents, err := facility.InitiateDisbursal(completion.Disbursal.Amount, FacilityBalances{}, price, now)
			if err != nil {
				return err
			}
			events = append(events, disbursalEvents...)

			feeKey := LedgerTxKey{Entity: id.String(), Action: "structuring_fee"}
			if completion.Facility.Terms.DisburseAllAtActivation {
				// The fee and its cash settlement post in the one
				// transaction; no separate disbursal leg needed.
				if err := s.Ledger.ChargeStructuringFee(ctx, feeKey, id, completion.Disbursal.Amount); err != nil {
					return err
				}
			} else {
				if err := s.Ledger.RecordStructuringFee(ctx, feeKey, id, completion.Disbursal.Amount); err != nil {
					return err
				}
				disburseKey := LedgerTxKey{Entity: id.String(), Action: "disbursal_" + d.ID.String()}
				if err := s.Ledger.InitiateDisbursal(ctx, disburseKey, id, d.ID, d.Amount); err != nil {
					return err
				}
				if err := s.Ledger.SettleDisbursal(ctx, disburseKey, id, d.ID); err != nil {
					return err
				}
			}

			dueAt := now.Add(facility.Terms.InterestDueOffset)
			overdueAt := dueAt.Add(facility.Terms.OverdueOffset)
			liquidationAt := dueAt.Add(facility.Terms.LiquidationOffset)
			ob, obEvents := obligation.Create(obligation.NewParams{
				FacilityID:    facility.ID,
				DisbursalID:   d.ID,
				Type:          obligation.Disbursed,
				Amount:        d.Amount,
				DueAt:         dueAt,
				OverdueAt:     &overdueAt,
				LiquidationAt: &liquidationAt,
				Now:           now,
			})
			if err := s.Obligations.Append(ctx, ob.ID, 1, obEvents); err != nil {
				return err
			}
			if err := s.publishAll(ctx, obEvents); err != nil {
				return err
			}

			settleEvents := d.Settle(ob.ID, now)
			for _, e := range settleEvents {
				facility.Apply(e)
			}
			events = append(events, settleEvents...)
		}

		if err := s.Facilities.Append(ctx, id, 1, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
	return facility, err
}

// RunInterestAccrualCycleStep starts or concludes the facility's current
// accrual cycle as appropriate, per spec.md §4.5/§5's scheduled job. When
// a cycle concludes with nonzero interest, it creates the corresponding
// Obligation.
func (s *Service) RunInterestAccrualCycleStep(ctx context.Context, facilityID ids.FacilityID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		facility, err := s.Facilities.Load(ctx, facilityID)
		if err != nil {
			return err
		}

		cycle := facility.CurrentCycle()
		if cycle == nil || cycle.IsDue(now) {
			if cycle != nil {
				if err := s.concludeCycle(ctx, facility, now); err != nil {
					return err
				}
			}
			_, events, err := facility.StartInterestAccrualCycle(now)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}
			nextSeq, err := s.Facilities.NextSequence(ctx, facilityID)
			if err != nil {
				return err
			}
			if err := s.Facilities.Append(ctx, facilityID, nextSeq, events); err != nil {
				return err
			}
			return s.publishAll(ctx, events)
		}
		return nil
	})
}

func (s *Service) concludeCycle(ctx context.Context, facility *CreditFacility, now time.Time) error {
	cycle := facility.CurrentCycle()
	var obligationID ids.ObligationID
	if cycle.TotalInterest() > 0 {
		ob, obEvents := obligation.Create(obligation.NewParams{
			FacilityID: facility.ID,
			Type:       obligation.Interest,
			Amount:     cycle.TotalInterest(),
			DueAt:      cycle.Period.End.Add(facility.Terms.InterestDueOffset),
			Now:        now,
		})
		if err := s.Obligations.Append(ctx, ob.ID, 1, obEvents); err != nil {
			return err
		}
		if err := s.publishAll(ctx, obEvents); err != nil {
			return err
		}
		obligationID = ob.ID
		key := LedgerTxKey{Entity: facility.ID.String(), Action: fmt.Sprintf("accrue_cycle_%d", cycle.Index)}
		if err := s.Ledger.RecordInterestAccrual(ctx, key, facility.ID, cycle.Index, cycle.TotalInterest()); err != nil {
			return err
		}
	}

	_, events := facility.RecordInterestAccrualCycle(obligationID, now)
	if len(events) == 0 {
		return nil
	}
	nextSeq, err := s.Facilities.NextSequence(ctx, facility.ID)
	if err != nil {
		return err
	}
	if err := s.Facilities.Append(ctx, facility.ID, nextSeq, events); err != nil {
		return err
	}
	return s.publishAll(ctx, events)
}

// MatureFacility transitions a facility to Matured at its maturity date
// (spec.md §5 "facility-maturity job").
func (s *Service) MatureFacility(ctx context.Context, facilityID ids.FacilityID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		facility, err := s.Facilities.Load(ctx, facilityID)
		if err != nil {
			return err
		}
		_, events := facility.Mature(now)
		if len(events) == 0 {
			return nil
		}
		nextSeq, err := s.Facilities.NextSequence(ctx, facilityID)
		if err != nil {
			return err
		}
		if err := s.Facilities.Append(ctx, facilityID, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
}

// RefreshFacilityCollateralization re-reads balances and price, and
// re-evaluates the facility's collateralization state with hysteresis
// (spec.md §4.6, §5 "collateralisation-from-price job").
func (s *Service) RefreshFacilityCollateralization(ctx context.Context, facilityID ids.FacilityID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		facility, err := s.Facilities.Load(ctx, facilityID)
		if err != nil {
			return err
		}
		balances, err := s.Ledger.Balances(ctx, facilityID)
		if err != nil {
			return err
		}
		price, err := s.Prices.BTCPriceUSD(ctx)
		if err != nil {
			return err
		}
		before := len(facility.history)
		facility.UpdateCollateralization(balances, price, now)
		events := facility.history[before:]
		if len(events) == 0 {
			return nil
		}
		nextSeq, err := s.Facilities.NextSequence(ctx, facilityID)
		if err != nil {
			return err
		}
		if err := s.Facilities.Append(ctx, facilityID, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
}

// AllocatePayment allocates an incoming payment against one obligation
// (spec.md §4.7). Callers that need the facility-wide priority ordering
// should use AllocatePaymentAcrossFacility instead, which calls this once
// per obligation in priority order.
func (s *Service) AllocatePayment(ctx context.Context, obligationID ids.ObligationID, paymentID ids.PaymentID, amount money.UsdCents, effective time.Time) (money.UsdCents, error) {
	var applied money.UsdCents
	err := eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.PaymentAllocationRetries, func(ctx context.Context) error {
		ob, err := s.Obligations.Load(ctx, obligationID)
		if err != nil {
			return err
		}
		result, events := ob.AllocatePayment(paymentID, amount, effective)
		if result.WasIgnored() {
			applied = 0
			return nil
		}
		applied, _ = result.Result()
		nextSeq, err := s.Obligations.NextSequence(ctx, obligationID)
		if err != nil {
			return err
		}
		if err := s.Obligations.Append(ctx, obligationID, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
	return applied, err
}

// obligationBucketRank orders the three buckets named in spec.md §4.7's
// Aggregation paragraph, with Defaulted folded in ahead of Overdue as the
// most urgent to recover.
func obligationBucketRank(status obligation.Status) int {
	switch status {
	case obligation.Defaulted:
		return 0
	case obligation.Overdue:
		return 1
	case obligation.Due:
		return 2
	default:
		return 3 // NotYetDue
	}
}

// obligationTypeRank breaks ties within a bucket: disbursed before
// interest (spec.md §4.7).
func obligationTypeRank(t obligation.Type) int {
	if t == obligation.Disbursed {
		return 0
	}
	return 1
}

// AllocatePaymentAcrossFacility allocates a payment across every
// non-terminal obligation of a facility in priority order — overdue before
// due before not-yet-due, disbursed before interest within each bucket —
// until the payment is exhausted or every outstanding amount is consumed
// (spec.md §4.7 "Aggregation").
func (s *Service) AllocatePaymentAcrossFacility(ctx context.Context, facilityID ids.FacilityID, paymentID ids.PaymentID, amount money.UsdCents, effective time.Time) (money.UsdCents, error) {
	obligationIDs, err := s.Obligations.ListByFacility(ctx, facilityID)
	if err != nil {
		return 0, err
	}

	var candidates []*obligation.Obligation
	for _, id := range obligationIDs {
		ob, err := s.Obligations.Load(ctx, id)
		if err != nil {
			return 0, err
		}
		if ob.Status == obligation.Paid || ob.Outstanding == 0 {
			continue
		}
		candidates = append(candidates, ob)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		bi, bj := obligationBucketRank(candidates[i].Status), obligationBucketRank(candidates[j].Status)
		if bi != bj {
			return bi < bj
		}
		return obligationTypeRank(candidates[i].Type) < obligationTypeRank(candidates[j].Type)
	})

	var totalApplied money.UsdCents
	remaining := amount
	for _, ob := range candidates {
		if remaining <= 0 {
			break
		}
		applied, err := s.AllocatePayment(ctx, ob.ID, paymentID, remaining, effective)
		if err != nil {
			return totalApplied, err
		}
		totalApplied += applied
		remaining -= applied
	}
	return totalApplied, nil
}

// AdvanceObligation applies whichever of BecomeDue/BecomeOverdue/Default is
// appropriate for the obligation's current status and now, per spec.md
// §4.7 and the per-timestamp scheduled jobs named in spec.md §5. A no-op
// if the obligation is already past the relevant timestamp's transition
// or terminal.
func (s *Service) AdvanceObligation(ctx context.Context, obligationID ids.ObligationID, now time.Time) error {
	return eventsourcing.RetryOnConcurrentModification(ctx, eventsourcing.DefaultRetries, func(ctx context.Context) error {
		ob, err := s.Obligations.Load(ctx, obligationID)
		if err != nil {
			return err
		}

		var events []eventsourcing.Event
		switch {
		case ob.Status == obligation.NotYetDue && !now.Before(ob.DueAt):
			_, events = ob.BecomeDue(now)
		case ob.Status == obligation.Due && ob.OverdueAt != nil && !now.Before(*ob.OverdueAt):
			_, events = ob.BecomeOverdue(now)
		case ob.Status == obligation.Overdue && ob.LiquidationAt != nil && !now.Before(*ob.LiquidationAt):
			_, events = ob.Default(now)
		default:
			return nil
		}
		if len(events) == 0 {
			return nil
		}
		nextSeq, err := s.Obligations.NextSequence(ctx, obligationID)
		if err != nil {
			return err
		}
		if err := s.Obligations.Append(ctx, obligationID, nextSeq, events); err != nil {
			return err
		}
		return s.publishAll(ctx, events)
	})
}
