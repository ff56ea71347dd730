package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/doorcalc/internal/catalog/domain"
)

// scopeRequest is the applicability rule shared by additions and coefficients.
type scopeRequest struct {
	IsGlobal    bool          `json:"is_global"`
	CategoryIDs []json.Number `json:"category_ids"`
	ProductIDs  []json.Number `json:"product_ids"`
}

func (r scopeRequest) toDomain() catalogdomain.ScopeRequest {
	return catalogdomain.ScopeRequest{
		Global:      r.IsGlobal,
		CategoryIDs: numbersToStrings(r.CategoryIDs),
		ProductIDs:  numbersToStrings(r.ProductIDs),
	}
}

func numbersToStrings(values []json.Number) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.String())
	}
	return out
}

type createAdditionRequest struct {
	Name      string      `json:"name"`
	UnitValue flexDecimal `json:"unit_value"`
	scopeRequest
}

func (s *Server) CreateAddition(c *gin.Context) {
	var req createAdditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateAddition(c.Request.Context(), catalogdomain.CreateAdditionRequest{
		Name:      strings.TrimSpace(req.Name),
		UnitValue: req.UnitValue.value.InexactFloat64(),
		Scope:     req.scopeRequest.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAdditions(c *gin.Context) {
	resp, err := s.catalogSvc.ListAdditions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createCoefficientRequest struct {
	Name  string      `json:"name"`
	Value flexDecimal `json:"value"`
	scopeRequest
}

func (s *Server) CreateCoefficient(c *gin.Context) {
	var req createCoefficientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var value *float64
	if v := req.Value.pointer(); v != nil {
		f := v.InexactFloat64()
		value = &f
	}

	resp, err := s.catalogSvc.CreateCoefficient(c.Request.Context(), catalogdomain.CreateCoefficientRequest{
		Name:  strings.TrimSpace(req.Name),
		Value: value,
		Scope: req.scopeRequest.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCoefficients(c *gin.Context) {
	resp, err := s.catalogSvc.ListCoefficients(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetApplicability lists what can be attached to a line built from product_ids.
func (s *Server) GetApplicability(c *gin.Context) {
	resp, err := s.catalogSvc.Applicable(c.Request.Context(), catalogdomain.ApplicableRequest{
		ProductIDs: splitIDs(c.Query("product_ids")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
