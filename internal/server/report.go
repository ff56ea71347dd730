package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
)

func reportRequest(c *gin.Context) orderdomain.ReportRequest {
	return orderdomain.ReportRequest{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
}

func (s *Server) GetOrdersReport(c *gin.Context) {
	resp, err := s.orderSvc.Report(c.Request.Context(), reportRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetOrdersReportXLSX always downloads.
func (s *Server) GetOrdersReportXLSX(c *gin.Context) {
	doc, err := s.documentSvc.OrdersReport(c.Request.Context(), reportRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeDocument(c, doc, true)
}
