package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Outcome is a provider result that has already been authenticated, either
// by webhook signature or by a verify round-trip.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// SignalSource names the entry point a payment signal came through.
type SignalSource string

const (
	SourceWebhook  SignalSource = "webhook"
	SourceRedirect SignalSource = "redirect"
	SourceSweeper  SignalSource = "sweeper"
)

// PaymentSignal is the input of the reconciler. Either OrderID or Reference
// must be set; OrderID wins when both are.
type PaymentSignal struct {
	OrderID       uuid.UUID
	Reference     string
	Outcome       Outcome
	ChargeID      string
	FailureReason string
	Source        SignalSource
}

// ReconcileResult reports what the reconciler did with a signal.
type ReconcileResult struct {
	Found         bool
	OrderID       uuid.UUID
	PaymentStatus PaymentStatus
	Transitioned  bool
	Enqueued      int
}

// ToMinorUnits converts a major-unit amount to the provider's integer
// minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
