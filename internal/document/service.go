package document

import (
	"context"
	"strings"

	"github.com/smallbiznis/doorcalc/internal/config"
	"github.com/smallbiznis/doorcalc/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Schedule *config.ScheduleHolder
	Orders   Evaluator
	Reports  Reporter
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	log      *zap.Logger
	company  config.CompanyConfig
	currency string
	schedule *config.ScheduleHolder
	orders   Evaluator
	reports  Reporter
	metrics  *metrics.Metrics
}

func New(p Params) Service {
	return &service{
		log:      p.Log.Named("document.service"),
		company:  p.Config.Company,
		currency: p.Config.CurrencyLabel,
		schedule: p.Schedule,
		orders:   p.Orders,
		reports:  p.Reports,
		metrics:  p.Metrics,
	}
}

func (s *service) Quote(ctx context.Context, req Request) (Document, error) {
	data, err := s.load(ctx, req)
	if err != nil {
		return Document{}, err
	}
	body, err := RenderQuote(data)
	if err != nil {
		return Document{}, err
	}
	return s.done(metrics.DocumentQuotePDF, data.OrderNumber, Document{
		FileName:    QuoteFileName(data.OrderNumber, data.CustomerName),
		ContentType: ContentTypePDF,
		Body:        body,
	}), nil
}

func (s *service) DetailedQuote(ctx context.Context, req Request) (Document, error) {
	data, err := s.load(ctx, req)
	if err != nil {
		return Document{}, err
	}
	body, err := RenderDetailedQuote(data)
	if err != nil {
		return Document{}, err
	}
	return s.done(metrics.DocumentDetailedPDF, data.OrderNumber, Document{
		FileName:    QuoteFileName(data.OrderNumber, data.CustomerName),
		ContentType: ContentTypePDF,
		Body:        body,
	}), nil
}

func (s *service) WorksheetPDF(ctx context.Context, req Request) (Document, error) {
	data, err := s.load(ctx, req)
	if err != nil {
		return Document{}, err
	}
	body, err := RenderWorksheetPDF(data)
	if err != nil {
		return Document{}, err
	}
	return s.done(metrics.DocumentWorksheetPDF, data.OrderNumber, Document{
		FileName:    WorksheetFileName(data.OrderNumber, "pdf"),
		ContentType: ContentTypePDF,
		Body:        body,
	}), nil
}

func (s *service) WorksheetXLSX(ctx context.Context, req Request) (Document, error) {
	data, err := s.load(ctx, req)
	if err != nil {
		return Document{}, err
	}
	body, err := RenderWorksheetXLSX(data)
	if err != nil {
		return Document{}, err
	}
	return s.done(metrics.DocumentWorksheetXLS, data.OrderNumber, Document{
		FileName:    WorksheetFileName(data.OrderNumber, "xlsx"),
		ContentType: ContentTypeXLSX,
		Body:        body,
	}), nil
}

func (s *service) OrdersReport(ctx context.Context, req orderdomain.ReportRequest) (Document, error) {
	report, err := s.reports.Report(ctx, req)
	if err != nil {
		return Document{}, err
	}
	body, err := RenderOrdersReportXLSX(report, s.currency)
	if err != nil {
		return Document{}, err
	}
	return s.done(metrics.DocumentReportXLSX, "", Document{
		FileName:    ReportFileName(report),
		ContentType: ContentTypeXLSX,
		Body:        body,
	}), nil
}

// load values the order once and derives everything both documents print.
func (s *service) load(ctx context.Context, req Request) (Data, error) {
	if pricing.CheckAmount(req.Delivery) != nil || pricing.CheckAmount(req.Packing) != nil {
		return Data{}, ErrInvalidExtras
	}

	detail, err := s.orders.Evaluate(ctx, orderdomain.EvaluateRequest{
		OrderID:        req.OrderID,
		MarkupOverride: req.MarkupOverride,
	})
	if err != nil {
		return Data{}, err
	}

	lines := detail.Valuations()
	rate := detail.Order.PricePerUnit.Decimal
	if len(lines) > 0 {
		rate = lines[0].PricePerUnit
	}
	customer := ""
	if detail.Customer != nil {
		customer = strings.TrimSpace(detail.Customer.DisplayName())
	}

	return Data{
		Company:      s.company,
		Currency:     s.currency,
		OrderNumber:  detail.Order.OrderNumber,
		OrderName:    detail.Order.OrderName,
		Date:         detail.Order.CreatedAt,
		CustomerName: customer,
		PricePerUnit: rate,
		Lines:        lines,
		Totals: pricing.SummarizeDocument(lines, pricing.Extras{
			Delivery: req.Delivery,
			Packing:  req.Packing,
		}, s.schedule.Get().Params()),
	}, nil
}

func (s *service) done(kind, orderNumber string, doc Document) Document {
	s.metrics.IncDocumentRendered(kind)
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("file_name", doc.FileName),
		zap.Int("bytes", len(doc.Body)),
	}
	if orderNumber != "" {
		fields = append(fields, zap.String("order_number", orderNumber))
	}
	s.log.Info("document rendered", fields...)
	return doc
}
