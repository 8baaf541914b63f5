package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
)

func (s *Server) RecordPayment(c *gin.Context) {
	var req billingdomain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.RecordPayment(c.Request.Context(), billingdomain.PaymentRequest{
		ReadingID: strings.TrimSpace(req.ReadingID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("reading_id", resp.Reading.ID)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	inv, err := s.billingSvc.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.GenerateReceipt(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", doc, map[string]string{
		"Content-Disposition": `attachment; filename="receipt-` + inv.Number + `.pdf"`,
	})
}
