package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/middleware"
)

type OrderStatusWriter interface {
	UpdateShippingStatus(ctx context.Context, orderId uuid.UUID, status domain.OrderStatus) error
}

type AdminHandler struct {
	orders OrderStatusWriter
	logger *zap.Logger
}

func NewAdminHandler(orders OrderStatusWriter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		orders: orders,
		logger: logger,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves the shipping lifecycle. Payment status is owned by the
// reconciler and cannot be set here.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}
	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + req.Status})
		return
	}

	if err := h.orders.UpdateShippingStatus(c.Request.Context(), id, status); err != nil {
		writeError(c, h.logger, err)
		return
	}

	admin, _ := middleware.CurrentIdentity(c)
	h.logger.Info("order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
		zap.String("admin", admin.CustomerID),
		zap.String("request_id", middleware.GetRequestID(c)))

	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}
