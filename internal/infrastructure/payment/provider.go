package payment

import (
	"context"
)

// Provider is the hosted-payment-page API the checkout and confirmation
// paths depend on.
type Provider interface {
	Initialize(ctx context.Context, req InitializeRequest) (*Session, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

type InitializeRequest struct {
	Email       string
	Amount      int64 // minor units
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    Metadata
}

type Metadata struct {
	CustomerID  string `json:"customerId"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

type Session struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type VerifyStatus string

const (
	VerifySuccess VerifyStatus = "success"
	VerifyFailed  VerifyStatus = "failed"
	// VerifyPending covers every status that is neither an explicit success
	// nor an explicit failure (ongoing, abandoned, queued, reversed...).
	VerifyPending VerifyStatus = "pending"
)

type Verification struct {
	Status          VerifyStatus
	ChargeID        string
	Reference       string
	GatewayResponse string
}

func normalizeStatus(s string) VerifyStatus {
	switch s {
	case "success":
		return VerifySuccess
	case "failed":
		return VerifyFailed
	default:
		return VerifyPending
	}
}
