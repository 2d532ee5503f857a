package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/middleware"
)

// writeError maps domain errors onto HTTP responses. Unclassified errors are
// logged and hidden behind a 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestID(c)

	var provErr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.As(err, &provErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "payment provider rejected the request",
			"details": provErr.Message,
		})
	case errors.Is(err, domain.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "payment provider unavailable, please retry",
			"request_id": requestID,
		})
	default:
		logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "internal error",
			"request_id": requestID,
		})
	}
}
