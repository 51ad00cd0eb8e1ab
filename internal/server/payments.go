package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settlementdomain "github.com/smallbiznis/liblend/internal/settlement/domain"
)

type processPaymentsRequest struct {
	PaymentRequests []settlementdomain.PaymentInstruction `json:"paymentRequests"`
}

func (s *Server) ProcessPayments(c *gin.Context) {
	var req processPaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.PaymentRequests == nil {
		AbortWithError(c, settlementdomain.ErrEmptyBatch)
		return
	}

	processed, err := s.settlementSvc.ProcessBatch(c.Request.Context(), req.PaymentRequests)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"processedCount": processed,
	})
}
