package pricing

import "github.com/shopspring/decimal"

// OrderTotals are the denormalized order-level caches.
type OrderTotals struct {
	TotalUnits decimal.Decimal `json:"total_ks"`
	TotalCost  decimal.Decimal `json:"total_cost"`
}

// Aggregate sums already-valued lines. It is always a full pass over the
// lines it is given; there is no incremental form.
func Aggregate(lines []Valuation) OrderTotals {
	units := decimal.Zero
	cost := decimal.Zero
	for _, l := range lines {
		units = units.Add(l.EffectiveUnits)
		cost = cost.Add(l.FinalPrice)
	}
	return OrderTotals{
		TotalUnits: Round2(units),
		TotalCost:  Round2(cost),
	}
}

// ValueAll prices every line with the same order terms, keeping input order.
func ValueAll(lines []LineInput, terms OrderTerms) []Valuation {
	out := make([]Valuation, 0, len(lines))
	for _, l := range lines {
		out = append(out, Value(l, terms))
	}
	return out
}
