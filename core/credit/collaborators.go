package credit

import (
	"context"

	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// PriceFeed is the single external collaborator named in spec.md §6: a
// method returning the current USD-cent price of one BTC. The core never
// prices collateral itself.
type PriceFeed interface {
	BTCPriceUSD(ctx context.Context) (money.PriceOfOneBTC, error)
}

// ApprovalProcess is the governance collaborator consumed by proposals and
// disbursals (spec.md §6). The core only starts a process and later
// listens for its conclusion; it never implements approval policy.
type ApprovalProcess interface {
	Start(ctx context.Context, processType string, subjectID string) (ids.ApprovalProcessID, error)
}

// LedgerTxKey is the deterministic (entity, action) id the ledger
// de-duplicates on (spec.md §6).
type LedgerTxKey struct {
	Entity string
	Action string
}

// LedgerClient is the double-entry ledger consumed by the core. The core
// never posts entries itself — it emits transaction requests keyed by
// LedgerTxKey and reads back balances (spec.md §1 Non-goals, §6).
type LedgerClient interface {
	// ActivateFacility posts the activation transaction template,
	// recording the facility's ledger accounts.
	ActivateFacility(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, accounts LedgerAccountIDs, principal money.UsdCents) error

	// RecordStructuringFee books the fee as an obligation without moving
	// cash (DESIGN.md open-question #3: used at activation when the terms
	// do not set DisburseAllAtActivation).
	RecordStructuringFee(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error
	// ChargeStructuringFee books the fee and settles it against cash in one
	// transaction (used at activation when the terms set
	// DisburseAllAtActivation).
	ChargeStructuringFee(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error
	// AddStructuringFee posts an additive adjustment to an already-recorded
	// fee obligation. Exposed for operator-driven corrections; the
	// automated activation path never calls it (DESIGN.md open question #3).
	AddStructuringFee(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error

	InitiateDisbursal(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID, amount money.UsdCents) error
	SettleDisbursal(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID) error
	CancelDisbursal(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID) error

	RecordInterestAccrual(ctx context.Context, key LedgerTxKey, facilityID ids.FacilityID, cycleIdx uint32, amount money.UsdCents) error

	// Balances returns the read-through balances for an active facility.
	Balances(ctx context.Context, facilityID ids.FacilityID) (FacilityBalances, error)
	// ProposalCollateralBalance returns the collateral balance for a
	// proposal/pending facility, before any disbursal exists.
	ProposalCollateralBalance(ctx context.Context, facilityID ids.FacilityID) (money.Satoshis, error)
}

// EventPublisher is the outbox the core emits its event vocabulary to
// (spec.md §6). Projections and downstream subscribers consume it; the
// outbox's own delivery mechanics are an external collaborator (spec.md
// §1 Non-goals).
type EventPublisher interface {
	Publish(ctx context.Context, event interface{ EventType() string }) error
}
