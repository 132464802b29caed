package credit

import (
	"errors"
	"testing"
	"time"

	"github.com/HonestMajority/lana-bank/core/money"
)

func baseTerms() TermValues {
	return TermValues{
		AnnualInterestRate: money.CVLPctFromInt(12),
		DurationMonths:     12,
		InitialCVL:         money.CVLPctFromInt(140),
		MarginCallCVL:      money.CVLPctFromInt(120),
		LiquidationCVL:     money.CVLPctFromInt(105),
		OneTimeFeeRateBps:  100,
	}
}

func TestTermValuesValidateAcceptsOrderedCVLs(t *testing.T) {
	if err := baseTerms().Validate(); err != nil {
		t.Fatalf("expected valid terms, got %v", err)
	}
}

func TestTermValuesValidateRejectsInitialBelowMarginCall(t *testing.T) {
	terms := baseTerms()
	terms.InitialCVL = money.CVLPctFromInt(110)
	if err := terms.Validate(); !errors.Is(err, ErrInvalidTerms) {
		t.Fatalf("expected ErrInvalidTerms, got %v", err)
	}
}

func TestTermValuesValidateRejectsMarginCallBelowLiquidation(t *testing.T) {
	terms := baseTerms()
	terms.MarginCallCVL = money.CVLPctFromInt(100)
	if err := terms.Validate(); !errors.Is(err, ErrInvalidTerms) {
		t.Fatalf("expected ErrInvalidTerms, got %v", err)
	}
}

func TestTermValuesValidateRejectsZeroDuration(t *testing.T) {
	terms := baseTerms()
	terms.DurationMonths = 0
	if err := terms.Validate(); !errors.Is(err, ErrInvalidTerms) {
		t.Fatalf("expected ErrInvalidTerms, got %v", err)
	}
}

func TestMaturityFromAddsDurationInMonths(t *testing.T) {
	terms := baseTerms()
	activatedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	want := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := terms.MaturityFrom(activatedAt); !got.Equal(want) {
		t.Fatalf("expected maturity %s, got %s", want, got)
	}
}

func TestStructuringFeeOnPrincipal(t *testing.T) {
	terms := baseTerms()
	// 100 bps (1%) of $10,000.00 is $100.00.
	got := terms.StructuringFee(money.UsdCents(10_000_00))
	if got != money.UsdCents(100_00) {
		t.Fatalf("expected 100.00, got %s", got)
	}
}

func TestStructuringFeeOnZeroPrincipal(t *testing.T) {
	terms := baseTerms()
	if got := terms.StructuringFee(0); got != 0 {
		t.Fatalf("expected zero fee on zero principal, got %s", got)
	}
}

func TestCyclePeriodContainsAndIsEmpty(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	p := CyclePeriod{Start: start, End: end}

	if p.IsEmpty() {
		t.Fatalf("expected a non-empty period")
	}
	if !p.Contains(start) {
		t.Fatalf("expected the period to contain its own start (half-open)")
	}
	if p.Contains(end) {
		t.Fatalf("expected the period to exclude its own end (half-open)")
	}

	empty := CyclePeriod{Start: end, End: start}
	if !empty.IsEmpty() {
		t.Fatalf("expected an inverted period to be empty")
	}
}
