package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/repo"
)

type ConfirmOutcome string

const (
	ConfirmPaid ConfirmOutcome = "paid"
	// ConfirmFailed means the provider explicitly reported the charge failed.
	ConfirmFailed ConfirmOutcome = "failed"
	// ConfirmInconclusive covers timeouts, outages and still-pending charges.
	// The order is left untouched for the webhook or sweeper to settle.
	ConfirmInconclusive ConfirmOutcome = "inconclusive"
	ConfirmNotFound     ConfirmOutcome = "not_found"
)

type Confirmation struct {
	Outcome ConfirmOutcome
	OrderID uuid.UUID
	Result  domain.ReconcileResult
}

// ConfirmationService verifies a charge with the provider and forwards
// explicit outcomes to the reconciler.
type ConfirmationService interface {
	ConfirmRedirect(ctx context.Context, orderID uuid.UUID, reference string) (Confirmation, error)
	ConfirmOrder(ctx context.Context, order domain.Order, source domain.SignalSource) (Confirmation, error)
}

type confirmationService struct {
	orders     repo.OrderRepo
	provider   payment.Provider
	reconciler Reconciler
	timeout    time.Duration
	log        *zap.Logger
}

func NewConfirmationService(
	orders repo.OrderRepo,
	provider payment.Provider,
	reconciler Reconciler,
	timeout time.Duration,
	log *zap.Logger,
) ConfirmationService {
	return &confirmationService{
		orders:     orders,
		provider:   provider,
		reconciler: reconciler,
		timeout:    timeout,
		log:        log,
	}
}

func (s *confirmationService) ConfirmRedirect(ctx context.Context, orderID uuid.UUID, reference string) (Confirmation, error) {
	var (
		order *domain.Order
		err   error
	)
	if orderID != uuid.Nil {
		order, err = s.orders.FindById(ctx, orderID)
	} else {
		order, err = s.orders.FindByReference(ctx, reference)
	}
	if err != nil {
		return Confirmation{Outcome: ConfirmInconclusive, OrderID: orderID}, err
	}
	if order == nil {
		s.log.Info("redirect confirmation for unknown order",
			zap.String("order_id", orderID.String()),
			zap.String("reference", reference))
		return Confirmation{Outcome: ConfirmNotFound, OrderID: orderID}, nil
	}
	return s.ConfirmOrder(ctx, *order, domain.SourceRedirect)
}

func (s *confirmationService) ConfirmOrder(ctx context.Context, order domain.Order, source domain.SignalSource) (Confirmation, error) {
	reference := order.PaymentReference
	if reference == "" {
		reference = order.OrderNumber
	}
	conf := Confirmation{Outcome: ConfirmInconclusive, OrderID: order.ID}

	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	v, err := s.provider.Verify(verifyCtx, reference)
	cancel()
	if err != nil {
		s.log.Warn("payment verification inconclusive",
			zap.String("order_id", order.ID.String()),
			zap.String("source", string(source)),
			zap.Error(err))
		return conf, nil
	}

	signal := domain.PaymentSignal{
		OrderID:   order.ID,
		Reference: reference,
		ChargeID:  v.ChargeID,
		Source:    source,
	}
	switch v.Status {
	case payment.VerifySuccess:
		signal.Outcome = domain.OutcomeSuccess
		conf.Outcome = ConfirmPaid
	case payment.VerifyFailed:
		signal.Outcome = domain.OutcomeFailure
		signal.FailureReason = v.GatewayResponse
		conf.Outcome = ConfirmFailed
	default:
		return conf, nil
	}

	res, err := s.reconciler.Reconcile(ctx, signal)
	if err != nil {
		return Confirmation{Outcome: ConfirmInconclusive, OrderID: order.ID}, err
	}
	conf.Result = res
	// a late failure for a completed order still lands the customer on success
	if res.PaymentStatus == domain.PaymentCompleted {
		conf.Outcome = ConfirmPaid
	}
	return conf, nil
}
