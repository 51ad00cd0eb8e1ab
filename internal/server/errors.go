package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	settlementdomain "github.com/smallbiznis/liblend/internal/settlement/domain"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/liblend/internal/usage/domain"
	withdrawaldomain "github.com/smallbiznis/liblend/internal/withdrawal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware maps domain errors to stable HTTP responses.
// Validation errors return their specific message; dependency and unexpected
// errors return a generic message with the cause logged, never exposed.
func ErrorHandlingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, message := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(lastErr.Err),
			)
		}
		c.AbortWithStatusJSON(status, gin.H{"error": message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, usagedomain.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid month format"
	case errors.Is(err, settlementdomain.ErrEmptyBatch):
		return http.StatusBadRequest, "payment requests are required"
	case errors.Is(err, settlementdomain.ErrBatchTooLarge):
		return http.StatusBadRequest, "batch limit exceeded"
	case errors.Is(err, settlementdomain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid payment amount"
	case errors.Is(err, settlementdomain.ErrIncompleteBankInfo):
		return http.StatusBadRequest, "incomplete bank info"
	case errors.Is(err, settlementdomain.ErrAlreadyProcessed):
		return http.StatusBadRequest, "already processed"
	case errors.Is(err, billingdomain.ErrRecordNotFound):
		return http.StatusBadRequest, "unknown billing record"
	case errors.Is(err, withdrawaldomain.ErrMissingParams):
		return http.StatusBadRequest, "missing required parameters"
	case errors.Is(err, withdrawaldomain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid withdrawal amount"
	case errors.Is(err, withdrawaldomain.ErrInvalidDate):
		return http.StatusBadRequest, "invalid withdrawal date"
	case errors.Is(err, tenantdomain.ErrInvalidTenantID):
		return http.StatusBadRequest, "invalid company id"
	case errors.Is(err, tenantdomain.ErrInvalidBankFields):
		return http.StatusBadRequest, "invalid bank account fields"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "company not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
