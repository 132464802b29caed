package credit

import "github.com/HonestMajority/lana-bank/core/money"

// CurrentCVL computes collateral_usd(price) / outstanding_payable * 100,
// where outstanding_payable excludes defaulted balances (spec.md §4.6).
func CurrentCVL(balances FacilityBalances, price money.PriceOfOneBTC) money.CVLPct {
	collateralUSD := balances.CollateralSats.UsdValue(price)
	return money.NewCVLPct(collateralUSD, balances.OutstandingPayable())
}

// FacilityAmountCVL computes collateral_usd(price) / facility_amount * 100,
// used for proposals before anything has been disbursed (spec.md §4.6).
func FacilityAmountCVL(collateralSats money.Satoshis, facilityAmount money.UsdCents, price money.PriceOfOneBTC) money.CVLPct {
	collateralUSD := collateralSats.UsdValue(price)
	return money.NewCVLPct(collateralUSD, facilityAmount)
}

// IsProposalCompletionAllowed reports facility_amount_cvl(price) >=
// margin_call_cvl (spec.md §4.6).
func IsProposalCompletionAllowed(collateralSats money.Satoshis, facilityAmount money.UsdCents, price money.PriceOfOneBTC, terms TermValues) bool {
	return FacilityAmountCVL(collateralSats, facilityAmount, price).GreaterOrEqual(terms.MarginCallCVL)
}

// IsDisbursalAllowed reports whether disbursing `additional` on top of the
// current balances keeps CVL at or above margin_call_cvl (spec.md §4.6).
func IsDisbursalAllowed(balances FacilityBalances, additional money.UsdCents, price money.PriceOfOneBTC, terms TermValues) bool {
	projected := balances
	projected.DisbursedNotYetDue += additional
	return CurrentCVL(projected, price).GreaterOrEqual(terms.MarginCallCVL)
}

// CollateralizationUpdate computes the next discrete state from a fresh CVL
// reading, the last state, and the upgrade buffer, per spec.md §4.6's
// table. Transitions only occur when the computed state differs from
// lastState — call sites are expected to compare the return value against
// lastState themselves to decide whether to emit a change event.
func CollateralizationUpdate(cvl money.CVLPct, lastState CollateralizationState, bufferPoints int64, force bool, terms TermValues) CollateralizationState {
	switch {
	case cvl.Less(terms.LiquidationCVL):
		return UnderLiquidationCvl
	case cvl.Less(terms.MarginCallCVL):
		return UnderMarginCallCvl
	case cvl.Less(terms.InitialCVL):
		return MarginCall
	case force || cvl.GreaterOrEqual(terms.InitialCVL.Plus(bufferPoints)):
		return FullyCollateralized
	default:
		// Degraded but not yet past the buffered upgrade threshold: holds
		// at the last state (hysteresis, spec.md §4.4 "prevents flapping").
		if lastState == NoCollateral {
			return MarginCall
		}
		return lastState
	}
}
