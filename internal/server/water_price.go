package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
)

func (s *Server) GetWaterPrice(c *gin.Context) {
	resp, err := s.settingSvc.GetWaterPrice(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateWaterPrice(c *gin.Context) {
	var req settingdomain.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingSvc.UpdateWaterPrice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
