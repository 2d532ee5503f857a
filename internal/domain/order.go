package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the shipping lifecycle of an order. Admins move it forward
// after payment; the reconciler only ever sets PROCESSING.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

type ItemType string

const (
	ItemBook  ItemType = "book"
	ItemMerch ItemType = "merch"
)

const (
	VariantEBook     = "E-Book"
	VariantAudiobook = "Audiobook"
)

type ShippingInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	PaymentReference string          `json:"paymentReference"`
	CustomerID       string          `json:"customerId"`
	Status           OrderStatus     `json:"status"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	TransactionID    string          `json:"transactionId,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	ShippingInfo     ShippingInfo    `json:"shippingInfo"`
	Items            []OrderItem     `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	ItemType    ItemType        `json:"itemType"`
	ProductID   string          `json:"productId"`
	Title       string          `json:"title"`
	VariantName string          `json:"variantName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Digital reports whether the line item is delivered through the
// fulfillment queue rather than shipped.
func (i OrderItem) Digital() bool {
	if i.ItemType != ItemBook {
		return false
	}
	return i.VariantName == VariantEBook || i.VariantName == VariantAudiobook
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
