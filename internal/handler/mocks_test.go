package handler

import (
	"context"
	"database/sql"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/middleware"
	"order-reconciler/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockCheckout struct {
	CheckoutFunc func(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

func (m *MockCheckout) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, req)
	}
	return &service.CheckoutResult{}, nil
}

type MockConfirmation struct {
	ConfirmRedirectFunc func(ctx context.Context, orderID uuid.UUID, reference string) (service.Confirmation, error)
	ConfirmOrderFunc    func(ctx context.Context, order domain.Order, source domain.SignalSource) (service.Confirmation, error)
}

func (m *MockConfirmation) ConfirmRedirect(ctx context.Context, orderID uuid.UUID, reference string) (service.Confirmation, error) {
	if m.ConfirmRedirectFunc != nil {
		return m.ConfirmRedirectFunc(ctx, orderID, reference)
	}
	return service.Confirmation{Outcome: service.ConfirmInconclusive}, nil
}

func (m *MockConfirmation) ConfirmOrder(ctx context.Context, order domain.Order, source domain.SignalSource) (service.Confirmation, error) {
	if m.ConfirmOrderFunc != nil {
		return m.ConfirmOrderFunc(ctx, order, source)
	}
	return service.Confirmation{Outcome: service.ConfirmInconclusive}, nil
}

// MockReconciler records every signal it receives.
type MockReconciler struct {
	ReconcileFunc func(ctx context.Context, signal domain.PaymentSignal) (domain.ReconcileResult, error)

	mu      sync.Mutex
	Signals []domain.PaymentSignal
}

func (m *MockReconciler) Reconcile(ctx context.Context, signal domain.PaymentSignal) (domain.ReconcileResult, error) {
	m.mu.Lock()
	m.Signals = append(m.Signals, signal)
	m.mu.Unlock()
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, signal)
	}
	return domain.ReconcileResult{Found: true}, nil
}

type MockOrders struct {
	FindByIdFunc             func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListItemsFunc            func(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) ([]domain.OrderItem, error)
	UpdateShippingStatusFunc func(ctx context.Context, orderId uuid.UUID, status domain.OrderStatus) error
}

func (m *MockOrders) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.FindByIdFunc != nil {
		return m.FindByIdFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrders) ListItems(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) ([]domain.OrderItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, tx, orderId)
	}
	return nil, nil
}

func (m *MockOrders) UpdateShippingStatus(ctx context.Context, orderId uuid.UUID, status domain.OrderStatus) error {
	if m.UpdateShippingStatusFunc != nil {
		return m.UpdateShippingStatusFunc(ctx, orderId, status)
	}
	return nil
}

type MockQueue struct {
	ListByOrderFunc func(ctx context.Context, orderId uuid.UUID) ([]domain.FulfillmentItem, error)
}

func (m *MockQueue) ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.FulfillmentItem, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderId)
	}
	return nil, nil
}

// as authenticates every request as id.
func as(id middleware.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetIdentity(c, id)
		c.Next()
	}
}
