// Package pricing turns order line items into unit totals, monetary totals and
// a printable formula trace. Everything here is pure: callers load the records,
// pass them in, and persist whatever comes back.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Round2 rounds to two decimal places, half away from zero.
// For non-negative amounts this is the usual half-up rule.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromFloat converts a catalog float value using its shortest decimal
// representation, so 1.1 becomes exactly 1.1 and not 1.100000000000000088.
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Fixed2 renders d with exactly two decimals.
func Fixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity without trailing zeros: 2.00 -> "2", 1.50 -> "1.5".
func FormatQuantity(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return q.Truncate(0).String()
	}
	s := q.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
