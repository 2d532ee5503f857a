package handler

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/middleware"
)

type OrderReader interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListItems(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) ([]domain.OrderItem, error)
}

type FulfillmentReader interface {
	ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.FulfillmentItem, error)
}

type OrderHandler struct {
	orders OrderReader
	queue  FulfillmentReader
	logger *zap.Logger
}

func NewOrderHandler(orders OrderReader, queue FulfillmentReader, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		queue:  queue,
		logger: logger,
	}
}

type orderResponse struct {
	*domain.Order
	Fulfillment []domain.FulfillmentItem `json:"fulfillment"`
}

// GetOrder returns an order with its items and digital delivery state. Other
// customers' orders read as not found.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	order, err := h.orders.FindById(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if order == nil || (!identity.IsAdmin() && order.CustomerID != identity.CustomerID) {
		writeError(c, h.logger, domain.ErrOrderNotFound)
		return
	}

	if order.Items, err = h.orders.ListItems(ctx, nil, id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	queue, err := h.queue.ListByOrder(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if queue == nil {
		queue = []domain.FulfillmentItem{}
	}

	c.JSON(http.StatusOK, orderResponse{Order: order, Fulfillment: queue})
}
