package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
)

type setRateRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) GetRate(c *gin.Context) {
	resp, err := s.rateSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"value":      resp.Value,
		"configured": resp.Configured,
		"updated_at": resp.UpdatedAt,
		"currency":   s.cfg.CurrencyLabel,
	}})
}

func (s *Server) SetRate(c *gin.Context) {
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// The rate service parses the value itself, so pass numbers and strings through as text.
	value := strings.TrimSpace(string(req.Value))
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = unquoted
	}

	resp, err := s.rateSvc.Set(c.Request.Context(), ratedomain.SetRateRequest{Value: value})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRateHistory(c *gin.Context) {
	limit, err := parseOptionalInt64(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	n := 20
	if limit != nil {
		n = int(*limit)
	}

	resp, err := s.rateSvc.History(c.Request.Context(), n)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
