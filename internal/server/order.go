package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/pkg/db/pagination"
)

type createOrderRequest struct {
	OrderNumber   string         `json:"order_number"`
	OrderName     string         `json:"order_name"`
	CustomerID    json.Number    `json:"customer_id"`
	MarkupPercent flexDecimal    `json:"markup_percent"`
	WorkType      string         `json:"work_type"`
	Metadata      map[string]any `json:"metadata"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
		OrderName:     strings.TrimSpace(req.OrderName),
		CustomerID:    req.CustomerID.String(),
		MarkupPercent: req.MarkupPercent.optional(),
		WorkType:      strings.TrimSpace(req.WorkType),
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		WorkType   string `form:"work_type"`
		CustomerID string `form:"customer_id"`
		Search     string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrderRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		Status:     strings.TrimSpace(query.Status),
		WorkType:   strings.TrimSpace(query.WorkType),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Search:     strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetOrder returns the valued order. A markup query parameter previews every
// line at that markup without saving it.
func (s *Server) GetOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var (
		resp orderdomain.OrderDetail
		err  error
	)
	if markup := queryDecimal(c.Query("markup")); markup.Valid {
		resp, err = s.orderSvc.Evaluate(c.Request.Context(), orderdomain.EvaluateRequest{
			OrderID:        id,
			MarkupOverride: markup,
		})
	} else {
		resp, err = s.orderSvc.Get(c.Request.Context(), id)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateOrderStatusRequest struct {
	Status        string `json:"status"`
	FinanceStatus string `json:"finance_status"`
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.UpdateStatus(c.Request.Context(), orderdomain.UpdateStatusRequest{
		OrderID:       strings.TrimSpace(c.Param("id")),
		Status:        strings.TrimSpace(req.Status),
		FinanceStatus: strings.TrimSpace(req.FinanceStatus),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type assignOrderCustomerRequest struct {
	CustomerID json.Number `json:"customer_id"`
}

func (s *Server) AssignOrderCustomer(c *gin.Context) {
	var req assignOrderCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.AssignCustomer(c.Request.Context(), orderdomain.AssignCustomerRequest{
		OrderID:    strings.TrimSpace(c.Param("id")),
		CustomerID: req.CustomerID.String(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setOrderMarkupRequest struct {
	OrderMarkup flexDecimal            `json:"order_markup"`
	ItemMarkups map[string]flexDecimal `json:"item_markups"`
}

// SetOrderMarkup changes the order markup and per-line overrides. A null or
// unreadable item value clears that line's override.
func (s *Server) SetOrderMarkup(c *gin.Context) {
	var req setOrderMarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var items map[string]decimal.NullDecimal
	if len(req.ItemMarkups) > 0 {
		items = make(map[string]decimal.NullDecimal, len(req.ItemMarkups))
		for id, markup := range req.ItemMarkups {
			items[strings.TrimSpace(id)] = markup.optional()
		}
	}

	resp, err := s.orderSvc.SetMarkup(c.Request.Context(), orderdomain.SetMarkupRequest{
		OrderID:     strings.TrimSpace(c.Param("id")),
		OrderMarkup: req.OrderMarkup.pointer(),
		ItemMarkups: items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type bulkCoefficientsRequest struct {
	CoefficientIDs []json.Number `json:"coefficient_ids"`
	Scope          string        `json:"scope"`
	ItemIDs        []json.Number `json:"item_ids"`
	Mode           string        `json:"mode"`
}

func (s *Server) BulkAssignCoefficients(c *gin.Context) {
	var req bulkCoefficientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.BulkAssignCoefficients(c.Request.Context(), orderdomain.BulkCoefficientsRequest{
		OrderID:        strings.TrimSpace(c.Param("id")),
		CoefficientIDs: numbersToStrings(req.CoefficientIDs),
		Scope:          strings.TrimSpace(req.Scope),
		ItemIDs:        numbersToStrings(req.ItemIDs),
		Mode:           strings.TrimSpace(req.Mode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecalculateOrder(c *gin.Context) {
	resp, err := s.orderSvc.Recalculate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrder(c *gin.Context) {
	if err := s.orderSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type updateOrderCompletionRequest struct {
	CompletionPercent flexDecimal `json:"completion_percent"`
	Comment           string      `json:"comment"`
}

func (s *Server) UpdateOrderCompletion(c *gin.Context) {
	var req updateOrderCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.UpdateCompletion(c.Request.Context(), orderdomain.UpdateCompletionRequest{
		OrderID: strings.TrimSpace(c.Param("id")),
		Percent: req.CompletionPercent.whole(),
		Comment: strings.TrimSpace(req.Comment),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrderProgress(c *gin.Context) {
	resp, err := s.orderSvc.ListProgress(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
