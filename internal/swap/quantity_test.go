package swap

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	cases := map[string]uint64{
		"0":              0,
		"0.5":            500_000_000,
		"1":              1_000_000_000,
		"0.000000001":    1,
		"0.0000000019":   1,
		"2.123456789987": 2_123_456_789,
	}
	for in, want := range cases {
		got, err := ToBaseUnits(decimal.RequireFromString(in))
		if err != nil {
			t.Fatalf("ToBaseUnits(%s) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ToBaseUnits(%s) = %d, want %d", in, got, want)
		}
	}
}

func TestToBaseUnitsRejectsNegative(t *testing.T) {
	_, err := ToBaseUnits(decimal.RequireFromString("-0.1"))
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindInvalidAmount {
		t.Fatalf("expected InvalidAmount, got %v", err)
	}
}

func TestToBaseUnitsRejectsOverflow(t *testing.T) {
	if _, err := ToBaseUnits(decimal.RequireFromString("1e20")); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestApplySlippage(t *testing.T) {
	cases := []struct {
		amount uint64
		bps    int
		want   uint64
	}{
		{500_000_000, 50, 502_500_000},
		{0, 50, 0},
		{100, 0, 100},
		{100, 10_000, 200},
		{199, 50, 199},
		{10_000, 1, 10_001},
	}
	for _, tc := range cases {
		got, err := ApplySlippage(tc.amount, tc.bps)
		if err != nil {
			t.Fatalf("ApplySlippage(%d, %d) returned error: %v", tc.amount, tc.bps, err)
		}
		if got != tc.want {
			t.Fatalf("ApplySlippage(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestApplySlippageRejectsBadInput(t *testing.T) {
	if _, err := ApplySlippage(10, -1); err == nil {
		t.Fatalf("expected error for negative bps")
	}
	if _, err := ApplySlippage(math.MaxUint64, 100); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestPercentOf(t *testing.T) {
	got, err := PercentOf(1_000_000, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("PercentOf returned error: %v", err)
	}
	if got != 250_000 {
		t.Fatalf("expected 250000, got %d", got)
	}

	got, err = PercentOf(3, decimal.RequireFromString("33.3"))
	if err != nil {
		t.Fatalf("PercentOf returned error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected floor to 0, got %d", got)
	}

	if _, err := PercentOf(10, decimal.NewFromInt(101)); err == nil {
		t.Fatalf("expected error above 100 percent")
	}
}
