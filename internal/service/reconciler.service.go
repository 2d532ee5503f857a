package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/repo"
)

// Reconciler is the only writer of an order's payment state. Callers must
// have authenticated the signal before handing it over.
type Reconciler interface {
	Reconcile(ctx context.Context, signal domain.PaymentSignal) (domain.ReconcileResult, error)
}

type reconciler struct {
	db     *sql.DB
	orders repo.OrderRepo
	queue  repo.FulfillmentRepo
	notify Notifications
	log    *zap.Logger
}

func NewReconciler(
	db *sql.DB,
	orders repo.OrderRepo,
	queue repo.FulfillmentRepo,
	notify Notifications,
	log *zap.Logger,
) Reconciler {
	return &reconciler{
		db:     db,
		orders: orders,
		queue:  queue,
		notify: notify,
		log:    log,
	}
}

// Reconcile applies signal under a row lock on the order. Each side effect
// has its own gate read from durable state:
//   - the Completed transition runs only from Pending or Failed;
//   - queue rows are inserted only for digital items without one, on every
//     success signal, so a crash between the two writes heals on replay;
//   - success emails go out only when this call made the transition.
//
// A failure signal never moves a Completed or Refunded order.
func (r *reconciler) Reconcile(ctx context.Context, signal domain.PaymentSignal) (domain.ReconcileResult, error) {
	if signal.OrderID == uuid.Nil && signal.Reference == "" {
		return domain.ReconcileResult{}, fmt.Errorf("%w: order id or reference required", domain.ErrInvalidRequest)
	}
	if signal.Outcome != domain.OutcomeSuccess && signal.Outcome != domain.OutcomeFailure {
		return domain.ReconcileResult{}, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidRequest, signal.Outcome)
	}

	log := r.log.With(
		zap.String("source", string(signal.Source)),
		zap.String("outcome", string(signal.Outcome)),
		zap.String("reference", signal.Reference),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	defer tx.Rollback()

	order, err := r.lock(ctx, tx, signal)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("lock order: %w", err)
	}
	if order == nil {
		log.Info("payment signal for unknown order ignored", zap.String("order_id", signal.OrderID.String()))
		return domain.ReconcileResult{Found: false}, nil
	}

	log = log.With(zap.String("order_id", order.ID.String()))
	result := domain.ReconcileResult{
		Found:         true,
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
	}

	var notifyFailure bool

	switch signal.Outcome {
	case domain.OutcomeSuccess:
		switch order.PaymentStatus {
		case domain.PaymentRefunded:
			log.Warn("success signal for refunded order ignored")
			return result, nil
		case domain.PaymentCompleted:
			log.Info("payment already processed")
		default:
			if err := r.orders.MarkPaymentCompleted(ctx, tx, order.ID, signal.ChargeID); err != nil {
				return domain.ReconcileResult{}, fmt.Errorf("mark completed: %w", err)
			}
			result.Transitioned = true
			result.PaymentStatus = domain.PaymentCompleted
			order.PaymentStatus = domain.PaymentCompleted
			order.Status = domain.OrderProcessing
			if signal.ChargeID != "" {
				order.TransactionID = signal.ChargeID
			}
		}

		enqueued, err := r.enqueueDigital(ctx, tx, order)
		if err != nil {
			return domain.ReconcileResult{}, fmt.Errorf("enqueue fulfillment: %w", err)
		}
		result.Enqueued = enqueued

	case domain.OutcomeFailure:
		if order.PaymentStatus == domain.PaymentCompleted || order.PaymentStatus == domain.PaymentRefunded {
			log.Warn("failure signal after completion ignored",
				zap.String("payment_status", string(order.PaymentStatus)),
				zap.String("reason", signal.FailureReason))
			return result, nil
		}
		if err := r.orders.MarkPaymentFailed(ctx, tx, order.ID); err != nil {
			return domain.ReconcileResult{}, fmt.Errorf("mark failed: %w", err)
		}
		result.PaymentStatus = domain.PaymentFailed
		order.PaymentStatus = domain.PaymentFailed
		notifyFailure = true
	}

	if err := tx.Commit(); err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("commit: %w", err)
	}

	log.Info("payment signal applied",
		zap.String("payment_status", string(result.PaymentStatus)),
		zap.Bool("transitioned", result.Transitioned),
		zap.Int("enqueued", result.Enqueued))

	if result.Transitioned {
		r.notify.PaymentSucceeded(*order)
	}
	if notifyFailure {
		r.notify.PaymentFailed(*order, signal.FailureReason)
	}
	return result, nil
}

func (r *reconciler) lock(ctx context.Context, tx *sql.Tx, signal domain.PaymentSignal) (*domain.Order, error) {
	if signal.OrderID != uuid.Nil {
		return r.orders.LockById(ctx, tx, signal.OrderID)
	}
	return r.orders.LockByReference(ctx, tx, signal.Reference)
}

// enqueueDigital inserts one queue row per digital item that has none yet.
// The unique order_item_id constraint turns a lost race into a no-op.
func (r *reconciler) enqueueDigital(ctx context.Context, tx *sql.Tx, order *domain.Order) (int, error) {
	items, err := r.orders.ListItems(ctx, tx, order.ID)
	if err != nil {
		return 0, err
	}
	existing, err := r.queue.ExistingForOrder(ctx, tx, order.ID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, item := range items {
		if !item.Digital() || existing[item.ID] {
			continue
		}
		inserted, err := r.queue.Enqueue(ctx, tx, &domain.FulfillmentItem{
			ID:          uuid.New(),
			OrderItemID: item.ID,
			OrderID:     order.ID,
			Status:      domain.FulfillmentPending,
			Email:       order.ShippingInfo.Email,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return 0, err
		}
		if inserted {
			enqueued++
		}
	}
	order.Items = items
	return enqueued, nil
}
