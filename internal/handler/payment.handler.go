package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-reconciler/internal/middleware"
	"order-reconciler/internal/service"
)

type PaymentHandler struct {
	confirm    service.ConfirmationService
	successURL string
	failureURL string
	logger     *zap.Logger
}

func NewPaymentHandler(confirm service.ConfirmationService, successURL, failureURL string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		confirm:    confirm,
		successURL: successURL,
		failureURL: failureURL,
		logger:     logger,
	}
}

// Confirm handles the browser returning from the provider's checkout page.
// The query string is untrusted: the outcome always comes from a provider
// verification, and only explicit outcomes reach the reconciler.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	rawID := c.Query("orderId")
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}

	orderID, err := uuid.Parse(rawID)
	if err != nil {
		orderID = uuid.Nil
	}
	if orderID == uuid.Nil && reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId or reference is required"})
		return
	}

	conf, err := h.confirm.ConfirmRedirect(c.Request.Context(), orderID, reference)
	if err != nil {
		h.logger.Error("redirect confirmation failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("order_id", rawID),
			zap.String("reference", reference),
			zap.Error(err))
	}

	target := h.failureURL
	if err == nil && conf.Outcome == service.ConfirmPaid {
		target = h.successURL
	}

	id := rawID
	if conf.OrderID != uuid.Nil {
		id = conf.OrderID.String()
	}
	c.Redirect(http.StatusFound, withOrderID(target, id))
}

func withOrderID(target, orderID string) string {
	u, err := url.Parse(target)
	if err != nil || orderID == "" {
		return target
	}
	q := u.Query()
	q.Set("orderId", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}
