package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/eventsourcing"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// CreditFacilityProposal is the negotiation record created by a
// customer-facing operation and concluded exactly once (spec.md §3, §4.2).
type CreditFacilityProposal struct {
	ID               ids.FacilityID
	CustomerID       ids.CustomerID
	CustomerType     CustomerType
	CustodianID      ids.CustodianID
	Terms            TermValues
	Amount           money.UsdCents
	DisbursalAccount string
	ApprovalProcessID ids.ApprovalProcessID
	Status           ProposalStatus

	history []eventsourcing.Event
}

// Apply folds one event into the proposal's state. Total on any prefix
// ever persisted (spec.md §4.1).
func (p *CreditFacilityProposal) Apply(e eventsourcing.Event) {
	p.history = append(p.history, e)
	switch ev := e.(type) {
	case ProposalInitialized:
		p.ID = ev.ProposalID
		p.CustomerID = ev.CustomerID
		p.CustomerType = ev.CustomerType
		p.CustodianID = ev.CustodianID
		p.Terms = ev.Terms
		p.Amount = ev.Amount
		p.DisbursalAccount = ev.DisbursalAccount
		p.ApprovalProcessID = ev.ApprovalProcessID
		p.Status = ProposalPendingApproval
	case ProposalApprovalConcluded:
		if ev.Approved {
			p.Status = ProposalApproved
		} else {
			p.Status = ProposalDenied
		}
	}
}

// ReplayProposal rebuilds a proposal from its full event log.
func ReplayProposal(events []eventsourcing.EventEnvelope) *CreditFacilityProposal {
	p := &CreditFacilityProposal{}
	for _, e := range events {
		p.Apply(e.Payload)
	}
	return p
}

// NewProposalParams bundles CreateProposal's inputs.
type NewProposalParams struct {
	CustomerID        ids.CustomerID
	CustomerType      CustomerType
	CustodianID       ids.CustodianID
	Terms             TermValues
	Amount            money.UsdCents
	DisbursalAccount  string
	ApprovalProcessID ids.ApprovalProcessID
	Now               time.Time
}

// CreateProposal constructs a brand-new proposal and its initial event
// (spec.md §4.2). Callers are responsible for having already started the
// external approval process and supplying its id.
func CreateProposal(p NewProposalParams) (*CreditFacilityProposal, []eventsourcing.Event) {
	id := ids.NewFacilityID()
	evt := ProposalInitialized{
		ProposalID:        id,
		CustomerID:        p.CustomerID,
		CustomerType:      p.CustomerType,
		CustodianID:       p.CustodianID,
		Terms:             p.Terms,
		Amount:            p.Amount,
		DisbursalAccount:  p.DisbursalAccount,
		ApprovalProcessID: p.ApprovalProcessID,
		CreatedAt:         p.Now,
	}
	proposal := &CreditFacilityProposal{}
	proposal.Apply(evt)
	return proposal, []eventsourcing.Event{evt}
}

// NewPendingFacilityBuilder carries the data needed to materialise a
// PendingCreditFacility once a proposal is approved — the proposal's id is
// reused 1:1 as the new pending facility's id (spec.md §4.3).
type NewPendingFacilityBuilder struct {
	FacilityID ids.FacilityID
	Terms      TermValues
	Amount     money.UsdCents
}

// ConcludeApproval records the governance outcome. Guarded against
// re-conclusion per spec.md §8 ("at most one ApprovalProcessConcluded
// event is ever present"). On approval, returns a builder for the
// PendingCreditFacility; on denial, only the conclusion event is emitted.
func (p *CreditFacilityProposal) ConcludeApproval(approved bool, now time.Time) (eventsourcing.Idempotent[*NewPendingFacilityBuilder], []eventsourcing.Event) {
	for i := len(p.history) - 1; i >= 0; i-- {
		if _, ok := p.history[i].(ProposalApprovalConcluded); ok {
			return eventsourcing.Ignored[*NewPendingFacilityBuilder](), nil
		}
	}
	evt := ProposalApprovalConcluded{ProposalID: p.ID, Approved: approved, ConcludedAt: now}
	p.Apply(evt)
	newEvents := []eventsourcing.Event{evt}

	var builder *NewPendingFacilityBuilder
	if approved {
		builder = &NewPendingFacilityBuilder{FacilityID: p.ID, Terms: p.Terms, Amount: p.Amount}
	}
	return eventsourcing.Executed(builder), newEvents
}
