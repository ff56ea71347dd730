package pricing

import "github.com/shopspring/decimal"

// ScheduleParams describe the shop floor throughput used for lead-time estimates.
type ScheduleParams struct {
	UnitsPerHour decimal.Decimal
	Workers      decimal.Decimal
	HoursPerDay  decimal.Decimal
	MarginFactor decimal.Decimal
}

func DefaultScheduleParams() ScheduleParams {
	return ScheduleParams{
		UnitsPerHour: decimal.RequireFromString("0.75"),
		Workers:      decimal.NewFromInt(2),
		HoursPerDay:  decimal.NewFromInt(8),
		MarginFactor: decimal.RequireFromString("1.3"),
	}
}

// ProductionDays estimates working days for totalUnits, never less than one.
func ProductionDays(totalUnits decimal.Decimal, p ScheduleParams) int {
	if totalUnits.Sign() <= 0 {
		return 1
	}
	perDay := p.Workers.Mul(p.HoursPerDay)
	if p.UnitsPerHour.Sign() <= 0 || perDay.Sign() <= 0 {
		return 1
	}

	hours := totalUnits.Div(p.UnitsPerHour)
	days := hours.Div(perDay).Mul(p.MarginFactor).Round(0).IntPart()
	if days < 1 {
		return 1
	}
	return int(days)
}

// Extras are flat document-level charges added after markup.
type Extras struct {
	Delivery decimal.Decimal
	Packing  decimal.Decimal
}

// DocumentTotals is the numeric content shared by the quote and the worksheet.
type DocumentTotals struct {
	UnitsTotal     decimal.Decimal `json:"units_total"`
	LinesTotal     decimal.Decimal `json:"lines_total"`
	Delivery       decimal.Decimal `json:"delivery"`
	Packing        decimal.Decimal `json:"packing"`
	ExtrasTotal    decimal.Decimal `json:"extras_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Constructions  decimal.Decimal `json:"constructions"`
	Positions      int             `json:"positions"`
	ProductionDays int             `json:"production_days"`
}

// SummarizeDocument derives document totals from valuations produced by Value.
func SummarizeDocument(lines []Valuation, extras Extras, sched ScheduleParams) DocumentTotals {
	totals := Aggregate(lines)

	constructions := decimal.Zero
	for _, l := range lines {
		constructions = constructions.Add(l.Quantity)
	}

	delivery := Round2(extras.Delivery)
	packing := Round2(extras.Packing)
	extrasTotal := Round2(extras.Delivery.Add(extras.Packing))

	return DocumentTotals{
		UnitsTotal:     totals.TotalUnits,
		LinesTotal:     totals.TotalCost,
		Delivery:       delivery,
		Packing:        packing,
		ExtrasTotal:    extrasTotal,
		GrandTotal:     Round2(totals.TotalCost.Add(extrasTotal)),
		Constructions:  constructions,
		Positions:      len(lines),
		ProductionDays: ProductionDays(totals.TotalUnits, sched),
	}
}
