package document

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"github.com/xuri/excelize/v2"
)

const worksheetSheet = "Worksheet"

// worksheetRow is one printed line of the internal worksheet.
type worksheetRow struct {
	Index     int
	Name      string
	Quantity  string
	Formula   string
	Breakdown string
	Units     decimal.Decimal
	Price     decimal.Decimal
}

func worksheetRows(lines []pricing.Valuation) []worksheetRow {
	rows := make([]worksheetRow, 0, len(lines))
	for i, v := range lines {
		name := v.Name
		if !v.Quantity.Equal(decimal.NewFromInt(1)) {
			name = fmt.Sprintf("%s × %s", name, pricing.FormatQuantity(v.Quantity))
		}
		rows = append(rows, worksheetRow{
			Index:     i + 1,
			Name:      name,
			Quantity:  pricing.FormatQuantity(v.Quantity),
			Formula:   v.Formula.Expression,
			Breakdown: v.Formula.Breakdown,
			Units:     v.EffectiveUnits,
			Price:     v.FinalPrice,
		})
	}
	return rows
}

// worksheetSummary is the calculation block under the table, as label/value pairs.
func worksheetSummary(d Data) [][2]string {
	t := d.Totals
	out := [][2]string{
		{"Total units", pricing.Fixed2(t.UnitsTotal)},
		{"(Sum of lines) × rate", money(d.PricePerUnit, d.Currency)},
		{"=", money(t.LinesTotal, d.Currency)},
	}
	for _, r := range extraRows(t) {
		out = append(out, [2]string{"+ " + r.name, money(r.value, d.Currency)})
	}
	if t.ExtrasTotal.Sign() > 0 {
		out = append(out, [2]string{"Grand total", money(t.GrandTotal, d.Currency)})
	}
	return out
}

// RenderWorksheetPDF prints the internal worksheet with the full per-line breakdown.
func RenderWorksheetPDF(d Data) ([]byte, error) {
	m := newPDF()
	addHeader(m, d, "Internal calculation")

	head := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center}
	m.AddRow(8,
		text.NewCol(1, "No", head),
		text.NewCol(3, "Item", head),
		text.NewCol(1, "Qty", head),
		text.NewCol(4, "Formula", head),
		text.NewCol(1, "Units", head),
		text.NewCol(2, "Price", head),
	)
	cell := props.Text{Size: 8}
	centered := props.Text{Size: 8, Align: align.Center}
	right := props.Text{Size: 8, Align: align.Right}
	for _, r := range worksheetRows(d.Lines) {
		m.AddRow(12,
			text.NewCol(1, strconv.Itoa(r.Index), centered),
			text.NewCol(3, r.Name, cell),
			text.NewCol(1, r.Quantity, centered),
			text.NewCol(4, r.Formula, cell),
			text.NewCol(1, pricing.Fixed2(r.Units), centered),
			text.NewCol(2, pricing.Fixed2(r.Price), right),
		)
	}

	m.AddRow(10, text.NewCol(12, "Calculation", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}))
	summary := col.New(12)
	pairs := worksheetSummary(d)
	for i, pair := range pairs {
		summary.Add(text.New(pair[0]+": "+pair[1], props.Text{Size: 10, Top: float64(i) * 5}))
	}
	m.AddRow(float64(len(pairs))*5+4, summary)
	addProductionNote(m, d.Totals.ProductionDays)

	return render(m)
}

// RenderWorksheetXLSX writes the worksheet rows plus the textual breakdown of each line.
func RenderWorksheetXLSX(d Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), worksheetSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	widths := map[string]float64{"A": 6, "B": 36, "C": 8, "D": 48, "E": 10, "F": 14, "G": 60}
	for c, w := range widths {
		if err := f.SetColWidth(worksheetSheet, c, c, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create bold style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0D6EFD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("create number style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("create wrap style: %w", err)
	}

	set := func(cell string, value any) error {
		return f.SetCellValue(worksheetSheet, cell, value)
	}

	meta := [][2]string{
		{"Order no.", sanitizeCell(d.OrderNumber)},
		{"Order", sanitizeCell(d.OrderName)},
		{"Date", d.Date.Format(dateLayout)},
		{"Customer", sanitizeCell(d.CustomerName)},
		{"Rate", money(d.PricePerUnit, d.Currency)},
	}
	row := 1
	for _, pair := range meta {
		if err := set(cellName(1, row), pair[0]); err != nil {
			return nil, err
		}
		if err := set(cellName(2, row), pair[1]); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetCellStyle(worksheetSheet, "A1", cellName(1, row-1), boldStyle); err != nil {
		return nil, err
	}

	row++
	headerRow := row
	for i, h := range []string{"No", "Item", "Qty", "Formula", "Units", "Price", "Breakdown"} {
		if err := set(cellName(i+1, row), h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(worksheetSheet, cellName(1, row), cellName(7, row), headerStyle); err != nil {
		return nil, err
	}
	row++

	for _, r := range worksheetRows(d.Lines) {
		values := []any{
			r.Index,
			sanitizeCell(r.Name),
			r.Quantity,
			r.Formula,
			r.Units.InexactFloat64(),
			r.Price.InexactFloat64(),
			r.Breakdown,
		}
		for i, v := range values {
			if err := set(cellName(i+1, row), v); err != nil {
				return nil, err
			}
		}
		row++
	}
	if row > headerRow+1 {
		if err := f.SetCellStyle(worksheetSheet, cellName(5, headerRow+1), cellName(6, row-1), numberStyle); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(worksheetSheet, cellName(7, headerRow+1), cellName(7, row-1), wrapStyle); err != nil {
			return nil, err
		}
	}

	row++
	for _, pair := range worksheetSummary(d) {
		if err := set(cellName(5, row), pair[0]); err != nil {
			return nil, err
		}
		if err := set(cellName(6, row), pair[1]); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(worksheetSheet, cellName(5, row), cellName(5, row), boldStyle); err != nil {
			return nil, err
		}
		row++
	}

	row++
	for _, line := range productionNote(d.Totals.ProductionDays) {
		if err := set(cellName(1, row), line); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// sanitizeCell keeps user-entered text from being read as a formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
