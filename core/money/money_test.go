package money

import "testing"

func TestSatoshisSubFloorsAtZero(t *testing.T) {
	if got := Satoshis(5).Sub(Satoshis(10)); got != 0 {
		t.Fatalf("expected floor at zero, got %d", got)
	}
	if got := Satoshis(10).Sub(Satoshis(4)); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}

func TestUsdCentsSaturatingSub(t *testing.T) {
	got, overflowed := UsdCents(100).SaturatingSub(UsdCents(150))
	if !overflowed || got != 0 {
		t.Fatalf("expected overflow with zero result, got %d overflowed=%v", got, overflowed)
	}
	got, overflowed = UsdCents(150).SaturatingSub(UsdCents(100))
	if overflowed || got != 50 {
		t.Fatalf("expected 50 with no overflow, got %d overflowed=%v", got, overflowed)
	}
}

func TestSatoshisUsdValue(t *testing.T) {
	// 1 BTC at $65,000.00 -> 100_000_000 sats = $6,500,000.00
	price := PriceOfOneBTC(65_000_00)
	got := Satoshis(100_000_000).UsdValue(price)
	if got != 6_500_000_00 {
		t.Fatalf("expected 6500000.00 in cents, got %d", got)
	}
}

func TestSatoshisUsdValueRoundsTowardZero(t *testing.T) {
	// 1 sat at $65,000.00/BTC = 0.00065 cents, rounds to 0.
	price := PriceOfOneBTC(65_000_00)
	if got := Satoshis(1).UsdValue(price); got != 0 {
		t.Fatalf("expected rounding down to 0 cents, got %d", got)
	}
}

func TestSatoshisUsdValueWithZeroPrice(t *testing.T) {
	if got := Satoshis(100_000_000).UsdValue(0); got != 0 {
		t.Fatalf("expected zero price to yield zero value, got %d", got)
	}
}

func TestPercentOfCents(t *testing.T) {
	// 1% (100 bps) of $1,000.00 is $10.00.
	got := PercentOfCents(UsdCents(1_000_00), 100)
	if got != 10_00 {
		t.Fatalf("expected 1000 cents, got %d", got)
	}
}

func TestPercentOfCentsTruncatesFraction(t *testing.T) {
	// 1 bp of 999 cents is 0.0999 cents, truncates to 0.
	got := PercentOfCents(UsdCents(999), 1)
	if got != 0 {
		t.Fatalf("expected truncation to 0, got %d", got)
	}
}

func TestPercentOfCentsZeroInputs(t *testing.T) {
	if got := PercentOfCents(0, 500); got != 0 {
		t.Fatalf("expected 0 for zero amount, got %d", got)
	}
	if got := PercentOfCents(UsdCents(1_000_00), 0); got != 0 {
		t.Fatalf("expected 0 for zero rate, got %d", got)
	}
}

func TestNewCVLPctBasic(t *testing.T) {
	// $150 of collateral against $100 outstanding is 150%.
	cvl := NewCVLPct(UsdCents(150_00), UsdCents(100_00))
	if !cvl.Equal(CVLPctFromInt(150)) {
		t.Fatalf("expected 150%%, got %s", cvl)
	}
}

func TestNewCVLPctZeroOutstandingIsFullyCovered(t *testing.T) {
	cvl := NewCVLPct(UsdCents(0), UsdCents(0))
	if !cvl.GreaterOrEqual(CVLPctFromInt(1_000_000)) {
		t.Fatalf("expected a zero-denominator CVL to be treated as fully covered, got %s", cvl)
	}
}

func TestCVLPctComparisons(t *testing.T) {
	low := CVLPctFromInt(120)
	high := CVLPctFromInt(150)

	if !low.Less(high) {
		t.Fatalf("expected 120%% < 150%%")
	}
	if low.GreaterOrEqual(high) {
		t.Fatalf("did not expect 120%% >= 150%%")
	}
	if !high.GreaterOrEqual(high) {
		t.Fatalf("expected 150%% >= 150%% (equal case)")
	}
}

func TestCVLPctPlus(t *testing.T) {
	got := CVLPctFromInt(140).Plus(5)
	if !got.Equal(CVLPctFromInt(145)) {
		t.Fatalf("expected 145%%, got %s", got)
	}
}

func TestCVLPctAsRatioPreservesValue(t *testing.T) {
	cvl := CVLPctFromInt(130)
	ratio := cvl.AsRatio()
	if ratio.String() != cvl.String() {
		t.Fatalf("expected ratio and cvl to render the same value, got %s vs %s", ratio, cvl)
	}
}

func TestUsdCentsString(t *testing.T) {
	if got := UsdCents(123_45).String(); got != "$123.45" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := UsdCents(5).String(); got != "$0.05" {
		t.Fatalf("unexpected format: %s", got)
	}
}
