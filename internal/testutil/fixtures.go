package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/repo"
)

func EBook(price string) domain.OrderItem {
	return domain.OrderItem{
		ItemType:    domain.ItemBook,
		ProductID:   "book-1",
		Title:       "The Field Guide",
		VariantName: domain.VariantEBook,
		Quantity:    1,
		Price:       decimal.RequireFromString(price),
	}
}

func Audiobook(price string) domain.OrderItem {
	it := EBook(price)
	it.ProductID = "book-2"
	it.VariantName = domain.VariantAudiobook
	return it
}

func Paperback(price string) domain.OrderItem {
	it := EBook(price)
	it.ProductID = "book-3"
	it.VariantName = "Paperback"
	return it
}

func Tshirt(price string, qty int) domain.OrderItem {
	return domain.OrderItem{
		ItemType:    domain.ItemMerch,
		ProductID:   "tee-1",
		Title:       "Logo Tee",
		VariantName: "M",
		Quantity:    qty,
		Price:       decimal.RequireFromString(price),
	}
}

// NewOrder builds a Pending/Pending order holding items, with totals summed
// from the items.
func NewOrder(items ...domain.OrderItem) *domain.Order {
	now := time.Now().UTC()
	id := uuid.New()
	number := "ORD-TEST-" + id.String()[:8]

	subtotal := decimal.Zero
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = id
		items[i].CreatedAt = now
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	return &domain.Order{
		ID:               id,
		OrderNumber:      number,
		PaymentReference: number,
		CustomerID:       "cust-1",
		Status:           domain.OrderPending,
		PaymentStatus:    domain.PaymentPending,
		Subtotal:         subtotal,
		Shipping:         decimal.Zero,
		Tax:              decimal.Zero,
		Total:            subtotal,
		Currency:         "NGN",
		ShippingInfo: domain.ShippingInfo{
			Name:    "Ada Obi",
			Email:   "ada@example.com",
			Address: "1 Marina, Lagos",
		},
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SeedOrder persists order and its items in one transaction.
func SeedOrder(t *testing.T, db *sql.DB, order *domain.Order) {
	t.Helper()
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if err := repo.NewOrderRepo(db).CreateOrder(ctx, tx, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
