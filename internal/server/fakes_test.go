package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/doorcalc/internal/config"
	"github.com/smallbiznis/doorcalc/internal/document"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
)

type fakeOrderService struct {
	orderdomain.Service

	err            error
	lastAdd        orderdomain.AddItemRequest
	lastMarkup     orderdomain.SetMarkupRequest
	lastEvaluate   orderdomain.EvaluateRequest
	lastCreate     orderdomain.CreateOrderRequest
	lastCompletion orderdomain.UpdateCompletionRequest
	lastReport     orderdomain.ReportRequest
	deleted        []string
	getCalls       int
	evalCalls      int
}

func (f *fakeOrderService) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (orderdomain.OrderDetail, error) {
	f.lastCreate = req
	return orderdomain.OrderDetail{}, f.err
}

func (f *fakeOrderService) Get(ctx context.Context, id string) (orderdomain.OrderDetail, error) {
	f.getCalls++
	return orderdomain.OrderDetail{}, f.err
}

func (f *fakeOrderService) Evaluate(ctx context.Context, req orderdomain.EvaluateRequest) (orderdomain.OrderDetail, error) {
	f.evalCalls++
	f.lastEvaluate = req
	return orderdomain.OrderDetail{}, f.err
}

func (f *fakeOrderService) AddItem(ctx context.Context, req orderdomain.AddItemRequest) (orderdomain.OrderDetail, error) {
	f.lastAdd = req
	return orderdomain.OrderDetail{}, f.err
}

func (f *fakeOrderService) SetMarkup(ctx context.Context, req orderdomain.SetMarkupRequest) (orderdomain.OrderDetail, error) {
	f.lastMarkup = req
	return orderdomain.OrderDetail{}, f.err
}

func (f *fakeOrderService) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeOrderService) UpdateCompletion(ctx context.Context, req orderdomain.UpdateCompletionRequest) (orderdomain.Order, error) {
	f.lastCompletion = req
	return orderdomain.Order{CompletionPercent: req.Percent}, f.err
}

func (f *fakeOrderService) Report(ctx context.Context, req orderdomain.ReportRequest) (orderdomain.Report, error) {
	f.lastReport = req
	return orderdomain.Report{}, f.err
}

type fakeRateService struct {
	ratedomain.Service

	lastSet ratedomain.SetRateRequest
}

func (f *fakeRateService) Set(ctx context.Context, req ratedomain.SetRateRequest) (ratedomain.Rate, error) {
	f.lastSet = req
	return ratedomain.Rate{}, nil
}

type fakeDocumentService struct {
	document.Service

	lastReq    document.Request
	lastReport orderdomain.ReportRequest
}

func (f *fakeDocumentService) Quote(ctx context.Context, req document.Request) (document.Document, error) {
	f.lastReq = req
	return document.Document{
		FileName:    "order_42_acme.pdf",
		ContentType: document.ContentTypePDF,
		Body:        []byte("%PDF-1.3"),
	}, nil
}

func (f *fakeDocumentService) DetailedQuote(ctx context.Context, req document.Request) (document.Document, error) {
	f.lastReq = req
	return document.Document{
		FileName:    "order_42_acme.pdf",
		ContentType: document.ContentTypePDF,
		Body:        []byte("%PDF-1.3 detailed"),
	}, nil
}

func (f *fakeDocumentService) OrdersReport(ctx context.Context, req orderdomain.ReportRequest) (document.Document, error) {
	f.lastReport = req
	return document.Document{
		FileName:    "report_20250331.xlsx",
		ContentType: document.ContentTypeXLSX,
		Body:        []byte("PK"),
	}, nil
}

func newTestServer(orders orderdomain.Service, rates ratedomain.Service, docs document.Service) *Server {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:      engine,
		cfg:         config.Config{CurrencyLabel: "UAH"},
		rateSvc:     rates,
		orderSvc:    orders,
		documentSvc: docs,
	}
	srv.registerAPIRoutes()
	srv.registerFallback()
	return srv
}
