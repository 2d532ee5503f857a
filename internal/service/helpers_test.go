package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/repo"
	"order-reconciler/internal/service"
	"order-reconciler/internal/testutil"
)

type recordingNotifications struct {
	mu        sync.Mutex
	created   []domain.Order
	succeeded []domain.Order
	failed    []string
}

func (n *recordingNotifications) OrderCreated(o domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o)
}

func (n *recordingNotifications) PaymentSucceeded(o domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded = append(n.succeeded, o)
}

func (n *recordingNotifications) PaymentFailed(o domain.Order, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, reason)
}

func (n *recordingNotifications) counts() (created, succeeded, failed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created), len(n.succeeded), len(n.failed)
}

type harness struct {
	db         *sql.DB
	orders     repo.OrderRepo
	queue      repo.FulfillmentRepo
	notify     *recordingNotifications
	provider   *payment.MockProvider
	reconciler service.Reconciler
	confirm    service.ConfirmationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewPostgres(t)
	h := &harness{
		db:       db,
		orders:   repo.NewOrderRepo(db),
		queue:    repo.NewFulfillmentRepo(db),
		notify:   &recordingNotifications{},
		provider: payment.NewMockProvider(),
	}
	h.reconciler = service.NewReconciler(db, h.orders, h.queue, h.notify, zap.NewNop())
	h.confirm = service.NewConfirmationService(h.orders, h.provider, h.reconciler, 200*time.Millisecond, zap.NewNop())
	return h
}

// seed stores order and opens a matching session at the mock provider.
func (h *harness) seed(t *testing.T, order *domain.Order) {
	t.Helper()
	testutil.SeedOrder(t, h.db, order)
	_, err := h.provider.Initialize(context.Background(), payment.InitializeRequest{
		Amount:    domain.ToMinorUnits(order.Total),
		Reference: order.PaymentReference,
	})
	if err != nil {
		t.Fatalf("open provider session: %v", err)
	}
}

func (h *harness) order(t *testing.T, order *domain.Order) *domain.Order {
	t.Helper()
	got, err := h.orders.FindById(context.Background(), order.ID)
	if err != nil || got == nil {
		t.Fatalf("reload order: %v", err)
	}
	return got
}

func (h *harness) queued(t *testing.T, order *domain.Order) []domain.FulfillmentItem {
	t.Helper()
	items, err := h.queue.ListByOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	return items
}

func success(order *domain.Order, source domain.SignalSource) domain.PaymentSignal {
	return domain.PaymentSignal{
		OrderID:  order.ID,
		Outcome:  domain.OutcomeSuccess,
		ChargeID: "ch_" + order.OrderNumber,
		Source:   source,
	}
}

func failure(order *domain.Order, reason string) domain.PaymentSignal {
	return domain.PaymentSignal{
		Reference:     order.PaymentReference,
		Outcome:       domain.OutcomeFailure,
		FailureReason: reason,
		Source:        domain.SourceWebhook,
	}
}
