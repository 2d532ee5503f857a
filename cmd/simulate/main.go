package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"order-reconciler/internal/config"
	"order-reconciler/internal/database"
	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/notify"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/repo"
	"order-reconciler/internal/service"
	"order-reconciler/internal/worker"
)

// countingMailer tallies messages per template on top of the log mailer.
type countingMailer struct {
	next notify.Mailer
	mu   sync.Mutex
	sent map[string]int
}

func (m *countingMailer) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	m.sent[msg.Template]++
	m.mu.Unlock()
	return m.next.Send(ctx, msg)
}

type scenario struct {
	name string
	run  func(ctx context.Context, s *sim, res *service.CheckoutResult) error
}

type sim struct {
	provider   *payment.MockProvider
	reconciler service.Reconciler
	confirm    service.ConfirmationService
}

func (s *sim) webhook(ctx context.Context, ev payment.WebhookEvent) error {
	signal := domain.PaymentSignal{
		Reference: ev.Data.Reference,
		ChargeID:  string(ev.Data.ID),
		Source:    domain.SourceWebhook,
		Outcome:   domain.OutcomeSuccess,
	}
	if ev.Event != payment.EventChargeSuccess {
		signal.Outcome = domain.OutcomeFailure
		signal.FailureReason = ev.Data.GatewayResponse
	}
	_, err := s.reconciler.Reconcile(ctx, signal)
	return err
}

var scenarios = []scenario{
	{"webhook and redirect race", func(ctx context.Context, s *sim, res *service.CheckoutResult) error {
		ev, err := s.provider.Settle(res.OrderNumber, true, "")
		if err != nil {
			return err
		}
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.webhook(ctx, ev) })
		g.Go(func() error { return s.webhook(ctx, ev) }) // provider retry
		g.Go(func() error {
			_, err := s.confirm.ConfirmRedirect(ctx, res.OrderID, res.OrderNumber)
			return err
		})
		return g.Wait()
	}},
	{"card declined", func(ctx context.Context, s *sim, res *service.CheckoutResult) error {
		ev, err := s.provider.Settle(res.OrderNumber, false, "Insufficient Funds")
		if err != nil {
			return err
		}
		return s.webhook(ctx, ev)
	}},
	{"webhook lost, customer closed tab", func(ctx context.Context, s *sim, res *service.CheckoutResult) error {
		_, err := s.provider.Settle(res.OrderNumber, true, "")
		return err
	}},
	{"late failure after success", func(ctx context.Context, s *sim, res *service.CheckoutResult) error {
		ok, err := s.provider.Settle(res.OrderNumber, true, "")
		if err != nil {
			return err
		}
		if err := s.webhook(ctx, ok); err != nil {
			return err
		}
		return s.webhook(ctx, payment.WebhookEvent{
			Event: payment.EventChargeFailed,
			Data:  payment.WebhookData{Reference: res.OrderNumber, GatewayResponse: "Reversed"},
		})
	}},
	{"abandoned checkout", func(ctx context.Context, s *sim, res *service.CheckoutResult) error {
		return nil
	}},
}

func main() {
	ctx := context.Background()

	dbCfg, err := config.LoadDB()
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.NewPostgres(ctx, dbCfg.URL())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	mailer := &countingMailer{next: notify.NewLogMailer(logger), sent: map[string]int{}}
	dispatcher := notify.NewDispatcher(notify.NewEmailNotifier(mailer, "admin@localhost"), logger, 5*time.Second)

	orderRepo := repo.NewOrderRepo(db)
	fulfillmentRepo := repo.NewFulfillmentRepo(db)
	provider := payment.NewMockProvider()
	provider.SetLatency(20 * time.Millisecond)

	reconciler := service.NewReconciler(db, orderRepo, fulfillmentRepo, dispatcher, logger)
	checkout := service.NewCheckoutService(db, orderRepo, provider, dispatcher, service.CheckoutConfig{
		CallbackURL:     "http://localhost:8080/api/payments/confirm",
		Currency:        "NGN",
		ProviderTimeout: time.Second,
	}, logger)
	confirm := service.NewConfirmationService(orderRepo, provider, reconciler, time.Second, logger)
	s := &sim{provider: provider, reconciler: reconciler, confirm: confirm}

	fmt.Println("--- STARTING SIMULATION (20 ORDERS) ---")
	var ids []*service.CheckoutResult
	for i := 0; i < 20; i++ {
		sc := scenarios[i%len(scenarios)]
		res, err := checkout.Checkout(ctx, service.CheckoutRequest{
			CustomerID: fmt.Sprintf("sim-%02d", i+1),
			Items: []service.CartItem{
				{ItemType: domain.ItemBook, ProductID: "b1", Title: "Field Guide", VariantName: domain.VariantEBook, Quantity: 1, Price: decimal.NewFromInt(12)},
				{ItemType: domain.ItemBook, ProductID: "b2", Title: "Field Guide", VariantName: domain.VariantAudiobook, Quantity: 1, Price: decimal.NewFromInt(15)},
				{ItemType: domain.ItemMerch, ProductID: "t1", Title: "Logo Tee", VariantName: "M", Quantity: 1, Price: decimal.NewFromInt(8)},
			},
			Shipping:     domain.ShippingInfo{Name: "Sim Customer", Email: fmt.Sprintf("sim%02d@example.com", i+1), Address: "1 Test Way"},
			ShippingCost: decimal.NewFromInt(3),
		})
		if err != nil {
			log.Printf("Checkout failed: %v", err)
			continue
		}
		ids = append(ids, res)

		fmt.Printf("[%02d] %s %-36s ", i+1, res.OrderNumber, sc.name)
		if err := sc.run(ctx, s, res); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}
		printState(ctx, orderRepo, fulfillmentRepo, res)
	}

	fmt.Println("--- SWEEPER PASS ---")
	sweeper := worker.NewReconciliationWorker(orderRepo, confirm, time.Minute, 0, time.Hour, 100, logger)
	stats, err := sweeper.RunOnce(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("checked=%d paid=%d failed=%d inconclusive=%d\n", stats.Checked, stats.Paid, stats.Failed, stats.Inconclusive)

	fmt.Println("--- FINAL STATE ---")
	for i, res := range ids {
		fmt.Printf("[%02d] %s ", i+1, res.OrderNumber)
		printState(ctx, orderRepo, fulfillmentRepo, res)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = dispatcher.Wait(waitCtx)

	fmt.Println("--- EMAILS ---")
	for _, tmpl := range []string{notify.TemplateOrderCreated, notify.TemplatePaymentSucceeded, notify.TemplatePaymentFailed} {
		fmt.Printf("%-20s %d\n", tmpl, mailer.sent[tmpl])
	}
}

func printState(ctx context.Context, orders repo.OrderRepo, queue repo.FulfillmentRepo, res *service.CheckoutResult) {
	order, err := orders.FindById(ctx, res.OrderID)
	if err != nil || order == nil {
		fmt.Printf("-> lookup failed: %v\n", err)
		return
	}
	items, err := queue.ListByOrder(ctx, res.OrderID)
	if err != nil {
		fmt.Printf("-> queue lookup failed: %v\n", err)
		return
	}
	fmt.Printf("-> payment=%-9s status=%-10s queued=%d\n", order.PaymentStatus, order.Status, len(items))
}
