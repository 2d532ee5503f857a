package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/payment"
)

const webhookSecret = "whsec_test"

func webhookRouter(rec *MockReconciler) *gin.Engine {
	r := gin.New()
	h := NewWebhookHandler(rec, webhookSecret, zap.NewNop())
	r.POST("/api/webhooks/payment", h.Receive)
	return r
}

func postWebhook(r http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookChargeSuccess(t *testing.T) {
	rec := &MockReconciler{}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.success","data":{"id":302961,"reference":"ORD-20250101-ABCDEF0123","status":"success","gateway_response":"Approved"}}`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.Signals, 1)
	sig := rec.Signals[0]
	assert.Equal(t, domain.OutcomeSuccess, sig.Outcome)
	assert.Equal(t, "ORD-20250101-ABCDEF0123", sig.Reference)
	assert.Equal(t, "302961", sig.ChargeID)
	assert.Equal(t, domain.SourceWebhook, sig.Source)
}

func TestWebhookChargeFailure(t *testing.T) {
	for _, event := range []string{payment.EventChargeFail, payment.EventChargeFailed} {
		t.Run(event, func(t *testing.T) {
			rec := &MockReconciler{}
			r := webhookRouter(rec)

			body := []byte(`{"event":"` + event + `","data":{"reference":"ref-1","gateway_response":"Insufficient Funds"}}`)
			w := postWebhook(r, body, payment.Sign(webhookSecret, body))

			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, rec.Signals, 1)
			assert.Equal(t, domain.OutcomeFailure, rec.Signals[0].Outcome)
			assert.Equal(t, "Insufficient Funds", rec.Signals[0].FailureReason)
		})
	}
}

func TestWebhookBadSignatureNeverReachesReconciler(t *testing.T) {
	rec := &MockReconciler{}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.success","data":{"id":1,"reference":"ref-1"}}`)
	tampered := []byte(`{"event":"charge.success","data":{"id":2,"reference":"ref-1"}}`)

	tests := map[string]string{
		"missing header":    "",
		"wrong secret":      payment.Sign("not-the-secret", body),
		"signed other body": payment.Sign(webhookSecret, tampered),
		"not hex":           "zz-not-hex",
	}
	for name, sig := range tests {
		t.Run(name, func(t *testing.T) {
			w := postWebhook(r, body, sig)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
	assert.Empty(t, rec.Signals)
}

func TestWebhookMalformedJSONWithValidSignature(t *testing.T) {
	rec := &MockReconciler{}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.success","data":`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.Signals)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	rec := &MockReconciler{}
	r := webhookRouter(rec)

	body := []byte(`{"event":"transfer.success","data":{"reference":"ref-1"}}`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.Signals)
}

func TestWebhookAnswers200WhenReconcileFails(t *testing.T) {
	rec := &MockReconciler{
		ReconcileFunc: func(ctx context.Context, s domain.PaymentSignal) (domain.ReconcileResult, error) {
			return domain.ReconcileResult{}, errors.New("db down")
		},
	}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.success","data":{"id":"ch_1","reference":"ref-1"}}`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.Signals, 1)
}

func TestWebhookUnknownReferenceAnswers200(t *testing.T) {
	rec := &MockReconciler{
		ReconcileFunc: func(ctx context.Context, s domain.PaymentSignal) (domain.ReconcileResult, error) {
			return domain.ReconcileResult{Found: false}, nil
		},
	}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.fail","data":{"reference":"someone-elses"}}`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookBodyLimit(t *testing.T) {
	rec := &MockReconciler{}
	r := webhookRouter(rec)

	body := []byte(`{"event":"charge.success","pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`)
	w := postWebhook(r, body, payment.Sign(webhookSecret, body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, rec.Signals)
}
