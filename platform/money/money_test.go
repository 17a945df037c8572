package money

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFromMajorRoundsToMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		3000:    300000,
		0:       0,
		12.34:   1234,
		199.999: 20000,
	}
	for in, want := range cases {
		got, err := FromMajor(in)
		if err != nil {
			t.Fatalf("FromMajor(%v) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("FromMajor(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestFromMajorRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), 1e20} {
		if _, err := FromMajor(v); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("FromMajor(%v) expected ErrInvalidAmount, got %v", v, err)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency(" usd ", "EUR")
	if err != nil || got != "USD" {
		t.Fatalf("expected USD, got %q (%v)", got, err)
	}

	got, err = NormalizeCurrency("", "krw")
	if err != nil || got != "KRW" {
		t.Fatalf("expected fallback KRW, got %q (%v)", got, err)
	}

	if _, err := NormalizeCurrency("ZZZ1", "USD"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	got := Format(370000, "USD")
	if !strings.HasPrefix(got, "USD ") || !strings.HasSuffix(got, ".00") || !strings.Contains(got, "3") {
		t.Fatalf("unexpected format %q", got)
	}
	if Format(5, "EUR") != "EUR 0.05" {
		t.Fatalf("unexpected small amount format %q", Format(5, "EUR"))
	}
}
