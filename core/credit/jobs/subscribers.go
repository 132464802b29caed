package jobs

import (
	"context"
	"time"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// ApprovalConcludedEvent is the inbound notification from the governance
// collaborator that started a proposal's approval process (spec.md §6).
// The core only reacts to it; it never evaluates approval policy.
type ApprovalConcludedEvent struct {
	ProposalID ids.FacilityID
	WalletID   ids.WalletID
	Approved   bool
	ConcludedAt time.Time
}

// ApprovalConclusionSubscriber forwards governance-process conclusions
// into the core as they arrive, rather than on a polling cadence (spec.md
// §5 "approval-conclusion jobs" as stream subscribers).
type ApprovalConclusionSubscriber struct {
	Service *credit.Service
}

// HandleApprovalConcluded applies one inbound conclusion.
func (s *ApprovalConclusionSubscriber) HandleApprovalConcluded(ctx context.Context, event ApprovalConcludedEvent) error {
	return s.Service.ConcludeProposalApproval(ctx, event.ProposalID, event.WalletID, event.Approved, event.ConcludedAt)
}

// CollateralDepositedEvent is the inbound notification from the custody
// collaborator that a wallet's on-chain balance changed (spec.md §6). The
// core never watches wallets itself; it reacts to what custody reports.
type CollateralDepositedEvent struct {
	FacilityID ids.FacilityID
	Satoshis   uint64
	Source     credit.CollateralUpdateSource
	WalletID   ids.WalletID
	ObservedAt time.Time
	Pending    bool
}

// CollateralizationFromEventsSubscriber re-evaluates a single
// proposal/facility's collateralization as soon as its wallet balance
// changes, instead of waiting for the next price-driven sweep (spec.md §5
// "collateralisation-from-events job").
type CollateralizationFromEventsSubscriber struct {
	Service *credit.Service
}

// HandleCollateralDeposited applies one inbound balance observation.
func (s *CollateralizationFromEventsSubscriber) HandleCollateralDeposited(ctx context.Context, event CollateralDepositedEvent) error {
	sats := money.Satoshis(event.Satoshis)
	if event.Pending {
		return s.Service.UpdatePendingCollateral(ctx, event.FacilityID, sats, event.Source, event.WalletID, event.ObservedAt)
	}
	return s.Service.RefreshFacilityCollateralization(ctx, event.FacilityID, event.ObservedAt)
}
