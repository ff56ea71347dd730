package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
)

type productQuantityRequest struct {
	ProductID json.Number `json:"product_id"`
	Quantity  flexDecimal `json:"quantity"`
}

type additionQuantityRequest struct {
	AdditionID json.Number `json:"addition_id"`
	Quantity   flexDecimal `json:"quantity"`
}

type orderItemRequest struct {
	Name           string                    `json:"name"`
	Quantity       flexDecimal               `json:"quantity"`
	Products       []productQuantityRequest  `json:"products"`
	Additions      []additionQuantityRequest `json:"additions"`
	CoefficientIDs []json.Number             `json:"coefficient_ids"`
	MarkupPercent  flexDecimal               `json:"markup_percent"`
	Status         string                    `json:"status"`
}

// toDomain applies the input defaults: missing quantities count as 1 and a
// missing markup inherits the order markup.
func (r orderItemRequest) toDomain() orderdomain.ItemRequest {
	products := make([]orderdomain.ProductQuantity, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, orderdomain.ProductQuantity{
			ProductID: p.ProductID.String(),
			Quantity:  p.Quantity.quantity(),
		})
	}
	additions := make([]orderdomain.AdditionQuantity, 0, len(r.Additions))
	for _, a := range r.Additions {
		additions = append(additions, orderdomain.AdditionQuantity{
			AdditionID: a.AdditionID.String(),
			Quantity:   a.Quantity.quantity(),
		})
	}

	return orderdomain.ItemRequest{
		Name:           strings.TrimSpace(r.Name),
		Quantity:       r.Quantity.quantity(),
		Products:       products,
		Additions:      additions,
		CoefficientIDs: numbersToStrings(r.CoefficientIDs),
		MarkupPercent:  r.MarkupPercent.optional(),
		Status:         strings.TrimSpace(r.Status),
	}
}

func (s *Server) AddOrderItem(c *gin.Context) {
	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.AddItem(c.Request.Context(), orderdomain.AddItemRequest{
		OrderID:     strings.TrimSpace(c.Param("id")),
		ItemRequest: req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateOrderItem(c *gin.Context) {
	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.UpdateItem(c.Request.Context(), orderdomain.UpdateItemRequest{
		OrderID:     strings.TrimSpace(c.Param("id")),
		ItemID:      strings.TrimSpace(c.Param("item_id")),
		ItemRequest: req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrderItem(c *gin.Context) {
	resp, err := s.orderSvc.DeleteItem(c.Request.Context(), orderdomain.DeleteItemRequest{
		OrderID: strings.TrimSpace(c.Param("id")),
		ItemID:  strings.TrimSpace(c.Param("item_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
