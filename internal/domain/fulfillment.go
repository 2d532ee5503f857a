package domain

import (
	"time"

	"github.com/google/uuid"
)

type FulfillmentStatus string

const (
	FulfillmentPending FulfillmentStatus = "PENDING"
	FulfillmentSent    FulfillmentStatus = "SENT"
	FulfillmentFailed  FulfillmentStatus = "FAILED"
)

// FulfillmentItem is one digital line item waiting to be delivered to Email.
type FulfillmentItem struct {
	ID          uuid.UUID         `json:"id"`
	OrderItemID uuid.UUID         `json:"orderItemId"`
	OrderID     uuid.UUID         `json:"orderId"`
	Status      FulfillmentStatus `json:"status"`
	Email       string            `json:"email"`
	Attempts    int               `json:"attempts"`
	LastError   string            `json:"lastError,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
