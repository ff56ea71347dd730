package document

import (
	"bytes"
	"fmt"

	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/xuri/excelize/v2"
)

const reportSheet = "Orders report"

var statusLabels = map[orderdomain.Status]string{
	orderdomain.StatusCalculation: "Calculation",
	orderdomain.StatusInProgress:  "In progress",
	orderdomain.StatusCompleted:   "Completed",
	orderdomain.StatusPostponed:   "Postponed",
}

func statusLabel(s orderdomain.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ReportFileName is report_<yyyymmdd>.xlsx for the day the report reflects.
func ReportFileName(r orderdomain.Report) string {
	return "report_" + r.AsOf.Format("20060102") + ".xlsx"
}

// RenderOrdersReportXLSX writes one row per order followed by the totals row:
// the value of active orders and their average progress.
func RenderOrdersReportXLSX(r orderdomain.Report, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	widths := map[string]float64{"A": 6, "B": 18, "C": 14, "D": 16, "E": 10, "F": 12, "G": 12}
	for c, w := range widths {
		if err := f.SetColWidth(reportSheet, c, c, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create bold style: %w", err)
	}

	set := func(col, row int, value any) error {
		return f.SetCellValue(reportSheet, cellName(col, row), value)
	}
	setRow := func(row int, values []any) error {
		for i, v := range values {
			if v == nil {
				continue
			}
			if err := set(i+1, row, v); err != nil {
				return err
			}
		}
		return nil
	}

	costHeader := "Cost"
	if currency != "" {
		costHeader += " (" + currency + ")"
	}
	if err := setRow(1, []any{"No", "Number", "Status", costHeader, "Units", "Done (%)", "Date"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", "G1", boldStyle); err != nil {
		return nil, err
	}

	row := 2
	for i, entry := range r.Rows {
		o := entry.Order
		if err := setRow(row, []any{
			i + 1,
			sanitizeCell(o.OrderNumber),
			statusLabel(o.Status),
			o.TotalCost.InexactFloat64(),
			o.TotalUnits.InexactFloat64(),
			entry.Progress,
			o.CreatedAt.Format(dateLayout),
		}); err != nil {
			return nil, err
		}
		row++
	}

	row++
	if err := setRow(row, []any{
		nil,
		"Total:",
		nil,
		r.TotalValue.InexactFloat64(),
		nil,
		r.AverageProgress.StringFixed(1) + "%",
	}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, cellName(2, row), cellName(6, row), boldStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
