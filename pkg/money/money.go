package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon is the smallest representable currency unit (0.01).
var Epsilon = decimal.New(1, -2)

// Round applies the 2-decimal rounding used at persistence and response boundaries.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// HasSubCent reports whether d carries a non-zero digit past the second decimal.
func HasSubCent(d decimal.Decimal) bool {
	return !d.Equal(Round(d))
}

// Parse reads a decimal string and rejects negative values and sub-cent amounts.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", s)
	}
	if HasSubCent(d) {
		return decimal.Zero, fmt.Errorf("amount %q has more than two decimals", s)
	}
	return d, nil
}

// Sum adds all amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// AtLeast reports whether a >= b - Epsilon, absorbing sub-cent drift.
func AtLeast(a, b decimal.Decimal) bool {
	return a.GreaterThanOrEqual(b.Sub(Epsilon))
}
