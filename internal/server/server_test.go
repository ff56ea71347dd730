package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestAddOrderItem_CoercesLooseInput(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPost, "/api/orders/42/items", `{
		"name": " Door ",
		"quantity": "2,5",
		"products": [{"product_id": "11"}, {"product_id": 12, "quantity": "1 200,5"}],
		"additions": [{"addition_id": 3, "quantity": 0}],
		"coefficient_ids": ["7", 8],
		"markup_percent": "abc"
	}`)

	require.Equal(t, http.StatusOK, resp.Code)
	req := orders.lastAdd
	assert.Equal(t, "42", req.OrderID)
	assert.Equal(t, "Door", req.Name)
	assert.Equal(t, "2.5", req.Quantity.String())
	require.Len(t, req.Products, 2)
	assert.Equal(t, "11", req.Products[0].ProductID)
	assert.Equal(t, "1", req.Products[0].Quantity.String())
	assert.Equal(t, "12", req.Products[1].ProductID)
	assert.Equal(t, "1200.5", req.Products[1].Quantity.String())
	require.Len(t, req.Additions, 1)
	assert.True(t, req.Additions[0].Quantity.IsZero())
	assert.Equal(t, []string{"7", "8"}, req.CoefficientIDs)
	assert.False(t, req.MarkupPercent.Valid)
}

func TestAddOrderItem_MissingQuantityDefaultsToOne(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPost, "/api/orders/1/items", `{"quantity": null}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "1", orders.lastAdd.Quantity.String())
	assert.Empty(t, orders.lastAdd.Products)
}

func TestGetOrder_MarkupQueryPreviews(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodGet, "/api/orders/9?markup=12,5", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, orders.evalCalls)
	assert.Equal(t, "9", orders.lastEvaluate.OrderID)
	assert.Equal(t, "12.5", orders.lastEvaluate.MarkupOverride.Decimal.String())

	resp = doRequest(srv, http.MethodGet, "/api/orders/9?markup=oops", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, orders.getCalls)
	assert.Equal(t, 1, orders.evalCalls)
}

func TestSetOrderMarkup_NullClearsItemOverride(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPut, "/api/orders/5/markup", `{"order_markup": "10", "item_markups": {"100": null, "101": 15}}`)

	require.Equal(t, http.StatusOK, resp.Code)
	req := orders.lastMarkup
	require.NotNil(t, req.OrderMarkup)
	assert.Equal(t, "10", req.OrderMarkup.String())
	require.Len(t, req.ItemMarkups, 2)
	assert.False(t, req.ItemMarkups["100"].Valid)
	assert.True(t, req.ItemMarkups["101"].Valid)
	assert.Equal(t, "15", req.ItemMarkups["101"].Decimal.String())
}

func TestSetOrderMarkup_MissingOrderMarkupLeavesItUnchanged(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPut, "/api/orders/5/markup", `{"item_markups": {"100": "7"}}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Nil(t, orders.lastMarkup.OrderMarkup)
}

func TestCreateOrder_AcceptsStringCustomerID(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPost, "/api/orders", `{"order_number": " 2025-001 ", "customer_id": "77", "markup_percent": 5}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2025-001", orders.lastCreate.OrderNumber)
	assert.Equal(t, "77", orders.lastCreate.CustomerID)
	assert.Equal(t, "5", orders.lastCreate.MarkupPercent.Decimal.String())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
		wantField  string
	}{
		{name: "validation", err: orderdomain.ErrInvalidQuantity, wantStatus: http.StatusBadRequest, wantType: "validation_error", wantCode: "invalid_quantity", wantField: "quantity"},
		{name: "duplicate product", err: orderdomain.ErrDuplicateProduct, wantStatus: http.StatusBadRequest, wantType: "validation_error", wantCode: "duplicate_product", wantField: "products"},
		{name: "conflict", err: orderdomain.ErrOrderExists, wantStatus: http.StatusConflict, wantType: "conflict"},
		{name: "not found", err: orderdomain.ErrNotFound, wantStatus: http.StatusNotFound, wantType: "not_found"},
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantType: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeOrderService{err: tt.err}, nil, nil)

			resp := doRequest(srv, http.MethodPost, "/api/orders/1/items", `{}`)

			require.Equal(t, tt.wantStatus, resp.Code)
			payload := decodeError(t, resp)
			assert.Equal(t, tt.wantType, payload.Type)
			if tt.wantCode != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tt.wantCode, payload.Errors[0].Code)
				assert.Equal(t, tt.wantField, payload.Errors[0].Field)
			}
		})
	}
}

func TestMalformedJSONIsInvalidRequest(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPost, "/api/orders/1/items", `{"name":`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_request", payload.Errors[0].Code)
	assert.Empty(t, orders.lastAdd.OrderID)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(&fakeOrderService{}, nil, nil)

	resp := doRequest(srv, http.MethodGet, "/api/nope", "")

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decodeError(t, resp).Type)
}

func TestSetRate_AcceptsNumberOrString(t *testing.T) {
	rates := &fakeRateService{}
	srv := newTestServer(nil, rates, nil)

	resp := doRequest(srv, http.MethodPut, "/api/rate", `{"value": 125.5}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "125.5", rates.lastSet.Value)

	resp = doRequest(srv, http.MethodPut, "/api/rate", `{"value": "130,25"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "130,25", rates.lastSet.Value)
}

func TestQuotePDF_Disposition(t *testing.T) {
	docs := &fakeDocumentService{}
	srv := newTestServer(nil, nil, docs)

	resp := doRequest(srv, http.MethodGet, "/api/orders/42/documents/quote.pdf?markup=10&delivery=300&packing=x", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename=order_42_acme.pdf`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", resp.Body.String())
	assert.Equal(t, "42", docs.lastReq.OrderID)
	assert.Equal(t, "10", docs.lastReq.MarkupOverride.Decimal.String())
	assert.Equal(t, "300", docs.lastReq.Delivery.String())
	assert.True(t, docs.lastReq.Packing.IsZero())

	resp = doRequest(srv, http.MethodGet, "/api/orders/42/documents/quote.pdf?download=1", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename=order_42_acme.pdf`, resp.Header().Get("Content-Disposition"))
	assert.False(t, docs.lastReq.MarkupOverride.Valid)
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, clientKey string) (ratelimit.Result, error) {
	return ratelimit.Result{Allowed: false, Limit: 1, RetryAfter: time.Second}, nil
}

func TestDocuments_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	docs := &fakeDocumentService{}
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	srv := &Server{engine: engine, documentSvc: docs, docLimiter: denyLimiter{}}
	srv.registerAPIRoutes()

	resp := doRequest(srv, http.MethodGet, "/api/orders/42/documents/quote.pdf", "")

	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "rate_limited", decodeError(t, resp).Type)
	assert.Equal(t, "1", resp.Header().Get("Retry-After"))
	assert.Empty(t, docs.lastReq.OrderID)
}

func TestDeleteOrder(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodDelete, "/api/orders/42", "")

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())
	assert.Equal(t, []string{"42"}, orders.deleted)

	orders.err = orderdomain.ErrNotFound
	resp = doRequest(srv, http.MethodDelete, "/api/orders/43", "")

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, []string{"42"}, orders.deleted)
}

func TestUpdateOrderCompletion_ReadsWholePercent(t *testing.T) {
	orders := &fakeOrderService{}
	srv := newTestServer(orders, nil, nil)

	resp := doRequest(srv, http.MethodPatch, "/api/orders/42/completion", `{"completion_percent": "75.9", "comment": " frames done "}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "42", orders.lastCompletion.OrderID)
	assert.Equal(t, 75, orders.lastCompletion.Percent)
	assert.Equal(t, "frames done", orders.lastCompletion.Comment)

	resp = doRequest(srv, http.MethodPatch, "/api/orders/42/completion", `{}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, orders.lastCompletion.Percent)
}

func TestOrdersReport_PassesDateRange(t *testing.T) {
	orders := &fakeOrderService{}
	docs := &fakeDocumentService{}
	srv := newTestServer(orders, nil, docs)

	resp := doRequest(srv, http.MethodGet, "/api/reports/orders?start_date=2025-03-01&end_date=2025-03-31", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, orderdomain.ReportRequest{StartDate: "2025-03-01", EndDate: "2025-03-31"}, orders.lastReport)

	resp = doRequest(srv, http.MethodGet, "/api/reports/orders.xlsx?end_date=2025-03-31", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename=report_20250331.xlsx`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header().Get("Content-Type"))
	assert.Equal(t, orderdomain.ReportRequest{EndDate: "2025-03-31"}, docs.lastReport)
}

func TestDetailedQuotePDF(t *testing.T) {
	docs := &fakeDocumentService{}
	srv := newTestServer(nil, nil, docs)

	resp := doRequest(srv, http.MethodGet, "/api/orders/42/documents/detailed.pdf?markup=5", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "%PDF-1.3 detailed", resp.Body.String())
	assert.Equal(t, `inline; filename=order_42_acme.pdf`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "5", docs.lastReq.MarkupOverride.Decimal.String())
}
