package document

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/pricing"
)

const dateLayout = "02.01.2006"

func newPDF() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func render(m core.Maroto) ([]byte, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

// addHeader prints the title on the left and the company block on the right,
// followed by the order details.
func addHeader(m core.Maroto, d Data, title string) {
	company := col.New(6)
	top := 0.0
	if d.Company.Name != "" {
		company.Add(text.New(d.Company.Name, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}))
		top += 6
	}
	for _, line := range []string{
		d.Company.Address,
		labeled("Phone", d.Company.Phone),
		labeled("Email", d.Company.Email),
		labeled("Company code", d.Company.Code),
		labeled("IBAN", d.Company.IBAN),
	} {
		if line == "" {
			continue
		}
		company.Add(text.New(line, props.Text{Size: 9, Align: align.Right, Top: top}))
		top += 4
	}

	m.AddRow(32,
		text.NewCol(6, title, props.Text{Size: 15, Style: fontstyle.Bold, Top: 10}),
		company,
	)

	customer := d.CustomerName
	if customer == "" {
		customer = "____________________"
	}
	m.AddRow(26, col.New(12).Add(
		text.New("Order no.: "+d.OrderNumber, props.Text{Size: 11}),
		text.New("Date: "+d.Date.Format(dateLayout), props.Text{Size: 11, Top: 5}),
		text.New("Customer: "+customer, props.Text{Size: 11, Top: 10}),
		text.New("Constructions in order: "+pricing.FormatQuantity(d.Totals.Constructions), props.Text{Size: 11, Top: 15}),
		text.New(fmt.Sprintf("Positions in order: %d", d.Totals.Positions), props.Text{Size: 9, Top: 20}),
	))
}

func addProductionNote(m core.Maroto, days int) {
	note := col.New(12)
	for i, line := range productionNote(days) {
		note.Add(text.New(line, props.Text{Size: 9, Top: float64(i) * 4}))
	}
	m.AddRow(24, note)
}

func labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func money(d decimal.Decimal, currency string) string {
	if currency == "" {
		return pricing.Fixed2(d)
	}
	return pricing.Fixed2(d) + " " + currency
}
