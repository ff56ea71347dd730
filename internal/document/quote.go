package document

import (
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/pricing"
)

type extraRow struct {
	name  string
	value decimal.Decimal
}

func extraRows(t pricing.DocumentTotals) []extraRow {
	var rows []extraRow
	if t.Delivery.Sign() > 0 {
		rows = append(rows, extraRow{name: "Delivery", value: t.Delivery})
	}
	if t.Packing.Sign() > 0 {
		rows = append(rows, extraRow{name: "Packing", value: t.Packing})
	}
	return rows
}

// detailedRow is one position of the detailed customer document.
type detailedRow struct {
	Index    int
	Name     string
	Quantity string
	UnitCost decimal.Decimal
	Amount   decimal.Decimal
}

// detailedRows prices each position per construction: the line price divided
// by its quantity, rounded half up.
func detailedRows(lines []pricing.Valuation) []detailedRow {
	rows := make([]detailedRow, 0, len(lines))
	for i, v := range lines {
		unit := decimal.Zero
		if v.Quantity.Sign() > 0 {
			unit = pricing.Round2(v.FinalPrice.Div(v.Quantity))
		}
		rows = append(rows, detailedRow{
			Index:    i + 1,
			Name:     v.Name,
			Quantity: pricing.FormatQuantity(v.Quantity),
			UnitCost: unit,
			Amount:   v.FinalPrice,
		})
	}
	return rows
}

// RenderQuote prints the customer-facing document. It carries the grand total
// only, never per-line prices.
func RenderQuote(d Data) ([]byte, error) {
	m := newPDF()
	addHeader(m, d, "Commercial offer")
	addExtrasTable(m, d.Totals)
	addTotalDue(m, d)
	return render(m)
}

// RenderDetailedQuote prints the customer document with one priced row per
// position ahead of the extras and the grand total.
func RenderDetailedQuote(d Data) ([]byte, error) {
	m := newPDF()
	addHeader(m, d, "Final order document")

	if rows := detailedRows(d.Lines); len(rows) > 0 {
		head := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Center}
		m.AddRow(10,
			text.NewCol(1, "No", head),
			text.NewCol(5, "Position", head),
			text.NewCol(2, "Qty", head),
			text.NewCol(2, "Unit price", head),
			text.NewCol(2, "Amount", head),
		)
		cell := props.Text{Size: 9, Align: align.Center}
		for _, r := range rows {
			m.AddRow(8,
				text.NewCol(1, strconv.Itoa(r.Index), cell),
				text.NewCol(5, r.Name, cell),
				text.NewCol(2, r.Quantity, cell),
				text.NewCol(2, pricing.Fixed2(r.UnitCost), cell),
				text.NewCol(2, pricing.Fixed2(r.Amount), cell),
			)
		}
		m.AddRow(6, col.New(12))
	}

	addExtrasTable(m, d.Totals)
	addTotalDue(m, d)
	return render(m)
}

func addExtrasTable(m core.Maroto, t pricing.DocumentTotals) {
	rows := extraRows(t)
	if len(rows) == 0 {
		return
	}
	head := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Center}
	m.AddRow(10,
		text.NewCol(1, "No", head),
		text.NewCol(5, "Additional services", head),
		text.NewCol(2, "Qty", head),
		text.NewCol(2, "Unit price", head),
		text.NewCol(2, "Amount", head),
	)
	cell := props.Text{Size: 9, Align: align.Center}
	for i, r := range rows {
		value := pricing.Fixed2(r.value)
		m.AddRow(8,
			text.NewCol(1, strconv.Itoa(i+1), cell),
			text.NewCol(5, r.name, cell),
			text.NewCol(2, "1", cell),
			text.NewCol(2, value, cell),
			text.NewCol(2, value, cell),
		)
	}
	m.AddRow(6, col.New(12))
}

func addTotalDue(m core.Maroto, d Data) {
	m.AddRow(14,
		text.NewCol(12, "Total due: "+money(d.Totals.GrandTotal, d.Currency), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)
	addProductionNote(m, d.Totals.ProductionDays)
}
