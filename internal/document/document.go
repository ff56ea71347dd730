// Package document renders the customer quotes and the internal worksheet for
// an order, and the orders report. Every number printed comes from the order valuation; nothing here
// recomputes a line.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/config"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/pricing"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrInvalidExtras = errors.New("invalid_extras")

// Options adjust a rendered document without touching the stored order.
type Options struct {
	// MarkupOverride, when set, is the effective markup of every line.
	MarkupOverride decimal.NullDecimal
	Delivery       decimal.Decimal
	Packing        decimal.Decimal
}

type Request struct {
	OrderID string
	Options
}

// Document is a rendered file ready to be served.
type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

type Service interface {
	Quote(context.Context, Request) (Document, error)
	DetailedQuote(context.Context, Request) (Document, error)
	WorksheetPDF(context.Context, Request) (Document, error)
	WorksheetXLSX(context.Context, Request) (Document, error)
	OrdersReport(context.Context, orderdomain.ReportRequest) (Document, error)
}

// Evaluator values an order without persisting anything.
type Evaluator interface {
	Evaluate(context.Context, orderdomain.EvaluateRequest) (orderdomain.OrderDetail, error)
}

type Reporter interface {
	Report(context.Context, orderdomain.ReportRequest) (orderdomain.Report, error)
}

// Data is everything a renderer prints.
type Data struct {
	Company      config.CompanyConfig
	Currency     string
	OrderNumber  string
	OrderName    string
	Date         time.Time
	CustomerName string
	PricePerUnit decimal.Decimal
	Lines        []pricing.Valuation
	Totals       pricing.DocumentTotals
}

// productionNote is the closing paragraph shared by both documents.
func productionNote(days int) []string {
	return []string{
		fmt.Sprintf("Estimated production time is %d working days.", days),
		"The start date is scheduled once materials and the approved project are available",
		"and depends on the current production load.",
		"If the drawings turn out not to cover the full scope of work,",
		"the remaining work will increase the project cost.",
	}
}
