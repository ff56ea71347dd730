package server

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/doorcalc/internal/document"
)

type renderFunc func(context.Context, document.Request) (document.Document, error)

func (s *Server) GetQuotePDF(c *gin.Context) {
	s.serveDocument(c, s.documentSvc.Quote)
}

func (s *Server) GetDetailedQuotePDF(c *gin.Context) {
	s.serveDocument(c, s.documentSvc.DetailedQuote)
}

func (s *Server) GetWorksheetPDF(c *gin.Context) {
	s.serveDocument(c, s.documentSvc.WorksheetPDF)
}

func (s *Server) GetWorksheetXLSX(c *gin.Context) {
	s.serveDocument(c, s.documentSvc.WorksheetXLSX)
}

// serveDocument reads the shared document query: markup, delivery, packing and
// download. Documents open inline unless download is set.
func (s *Server) serveDocument(c *gin.Context, render renderFunc) {
	req := document.Request{
		OrderID: strings.TrimSpace(c.Param("id")),
		Options: document.Options{
			MarkupOverride: queryDecimal(c.Query("markup")),
			Delivery:       queryAmount(c.Query("delivery")),
			Packing:        queryAmount(c.Query("packing")),
		},
	}

	doc, err := render(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeDocument(c, doc, parseFlag(c.Query("download")))
}

func writeDocument(c *gin.Context, doc document.Document, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.FileName}))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
