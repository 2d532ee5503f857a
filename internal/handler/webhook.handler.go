package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/middleware"
	"order-reconciler/internal/service"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	reconciler service.Reconciler
	secret     string
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler service.Reconciler, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		logger:     logger,
	}
}

// Receive authenticates a provider push against the raw body and forwards it
// to the reconciler. Anything past the signature check answers 200 so the
// provider does not retry events this service has already seen or ignores.
func (h *WebhookHandler) Receive(c *gin.Context) {
	log := h.logger.With(
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("client_ip", c.ClientIP()))

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		log.Warn("webhook body unreadable", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !payment.VerifySignature(h.secret, body, c.GetHeader(payment.SignatureHeader)) {
		log.Warn("webhook signature rejected",
			zap.Error(domain.ErrSignatureInvalid),
			zap.Bool("header_present", c.GetHeader(payment.SignatureHeader) != ""))
		c.Status(http.StatusOK)
		return
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("webhook payload malformed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	signal := domain.PaymentSignal{
		Reference: event.Data.Reference,
		ChargeID:  string(event.Data.ID),
		Source:    domain.SourceWebhook,
	}
	switch event.Event {
	case payment.EventChargeSuccess:
		signal.Outcome = domain.OutcomeSuccess
	case payment.EventChargeFail, payment.EventChargeFailed:
		signal.Outcome = domain.OutcomeFailure
		signal.FailureReason = event.Data.GatewayResponse
	default:
		log.Info("webhook event ignored", zap.String("event", event.Event))
		c.Status(http.StatusOK)
		return
	}

	res, err := h.reconciler.Reconcile(c.Request.Context(), signal)
	if err != nil {
		log.Error("webhook reconcile failed",
			zap.String("event", event.Event),
			zap.String("reference", signal.Reference),
			zap.Error(err))
		c.Status(http.StatusOK)
		return
	}
	if !res.Found {
		log.Info("webhook for unknown reference", zap.String("reference", signal.Reference))
	}
	c.Status(http.StatusOK)
}
