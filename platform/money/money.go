// Package money converts between wire amounts (major units) and stored amounts
// (minor units) and formats amounts for people.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrInvalidAmount is returned for NaN, infinite or out-of-range amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidCurrency is returned for codes that are not ISO 4217.
var ErrInvalidCurrency = errors.New("invalid currency code")

const maxMajor = 1e13

// FromMajor converts a major-unit amount (3000.5) to minor units (300050),
// rounding half away from zero. Sums over minor units are exact.
func FromMajor(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxMajor {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(v * 100)), nil
}

// ToMajor converts minor units back to a major-unit amount.
func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}

// NormalizeCurrency upper-cases code, falls back when empty and checks it against ISO 4217.
func NormalizeCurrency(code, fallback string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(fallback))
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}

var printer = message.NewPrinter(language.English)

// Format renders minor units as "USD 3,700.00".
func Format(minor int64, code string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%s.%02d", code, sign, printer.Sprintf("%d", minor/100), minor%100)
}
