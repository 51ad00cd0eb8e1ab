package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/liblend/internal/invoice/domain"
	withdrawaldomain "github.com/smallbiznis/liblend/internal/withdrawal/domain"
)

type generateInvoicesRequest struct {
	BillingMonth string `json:"billingMonth"`
}

func (s *Server) GenerateInvoices(c *gin.Context) {
	var req generateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.invoiceSvc.GenerateInvoices(c.Request.Context(), req.BillingMonth)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "invoice generation completed",
		"invoices": report.Issued(),
	})
}

func (s *Server) ListBillingRecords(c *gin.Context) {
	records, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		BillingMonth: c.Query("billingMonth"),
		Status:       c.Query("status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) AutoWithdrawal(c *gin.Context) {
	var req withdrawaldomain.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.withdrawalSvc.Withdraw(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transactionId": result.TransactionID,
	})
}
