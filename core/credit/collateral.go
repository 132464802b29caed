package credit

import (
	"time"

	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// Collateral is the collateral account balance for a facility or pending
// facility (spec.md §3). It is not independently event-sourced — it is
// folded from the owning aggregate's FacilityCollateralUpdated events —
// but is modeled as its own value type since both PendingCreditFacility
// and CreditFacility carry one.
type Collateral struct {
	Sats       money.Satoshis
	WalletID   ids.WalletID
	LastSource CollateralUpdateSource
	UpdatedAt  time.Time
}

// ApplyManual sets the collateral balance from an operator-entered amount.
// Returns the (old, new) pair for the caller to diff against for change
// detection before emitting FacilityCollateralUpdated.
func (c *Collateral) ApplyManual(sats money.Satoshis, effective time.Time) (old, new_ money.Satoshis) {
	old = c.Sats
	c.Sats = sats
	c.LastSource = UpdateSourceManual
	c.UpdatedAt = effective
	return old, sats
}

// ApplyWalletBalance sets the collateral balance from a custody-wallet sync
// (spec.md §3 "update lineage"; wallet balance sync itself is an external
// collaborator per spec.md §1 — this only records the resulting balance).
func (c *Collateral) ApplyWalletBalance(sats money.Satoshis, walletID ids.WalletID, effective time.Time) (old, new_ money.Satoshis) {
	old = c.Sats
	c.Sats = sats
	c.WalletID = walletID
	c.LastSource = UpdateSourceWalletSync
	c.UpdatedAt = effective
	return old, sats
}
