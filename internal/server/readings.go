package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

type createReadingRequest struct {
	UserID      string `json:"user_id"`
	MeterNow    *int64 `json:"meter_now"`
	MeterBefore *int64 `json:"meter_before"`
}

type correctReadingRequest struct {
	MeterNow *int64 `json:"meter_now"`
}

func (s *Server) ListReadings(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	userID := strings.TrimSpace(c.Query("user_id"))
	// Households only ever see their own meter.
	if userdomain.Role(actor.Role) == userdomain.RoleUser {
		userID = actor.UserID.String()
	}
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "user_id is required"))
		return
	}

	resp, err := s.meterSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateReading(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MeterNow == nil {
		AbortWithError(c, newValidationError("meter_now", "invalid_meter_now", "meter_now is required"))
		return
	}

	resp, err := s.meterSvc.Create(c.Request.Context(), meterdomain.CreateRequest{
		UserID:      strings.TrimSpace(req.UserID),
		MeterNow:    *req.MeterNow,
		MeterBefore: req.MeterBefore,
		RecordedBy:  actor.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("reading_id", resp.ID)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CorrectReading(c *gin.Context) {
	var req correctReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeterNow == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.Correct(c.Request.Context(), meterdomain.CorrectRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		MeterNow: *req.MeterNow,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("reading_id", resp.ID)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CheckReadings is the public lookup by NIK.
func (s *Server) CheckReadings(c *gin.Context) {
	nik := strings.TrimSpace(c.Query("nik"))
	if nik == "" {
		AbortWithError(c, userdomain.ErrInvalidNIK)
		return
	}

	resp, err := s.reportSvc.CheckByNIK(c.Request.Context(), nik)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReadingBill(c *gin.Context) {
	resp, err := s.billingSvc.Bill(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadInvoice(c *gin.Context) {
	inv, err := s.billingSvc.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.GenerateInvoice(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("reading_id", inv.Reading.ID)
	c.DataFromReader(http.StatusOK, -1, "application/pdf", doc, map[string]string{
		"Content-Disposition": `attachment; filename="` + inv.Number + `.pdf"`,
	})
}
