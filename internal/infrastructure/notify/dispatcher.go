package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/domain"
)

// Dispatcher runs each notification on a detached goroutine with its own
// deadline. Errors are logged and dropped.
type Dispatcher struct {
	next    Notifier
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(next Notifier, log *zap.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{next: next, log: log, timeout: timeout}
}

func (d *Dispatcher) OrderCreated(order domain.Order) {
	d.dispatch("order_created", order, func(ctx context.Context) error {
		return d.next.OrderCreated(ctx, order)
	})
}

func (d *Dispatcher) PaymentSucceeded(order domain.Order) {
	d.dispatch("payment_succeeded", order, func(ctx context.Context) error {
		return d.next.PaymentSucceeded(ctx, order)
	})
}

func (d *Dispatcher) PaymentFailed(order domain.Order, reason string) {
	d.dispatch("payment_failed", order, func(ctx context.Context) error {
		return d.next.PaymentFailed(ctx, order, reason)
	})
}

func (d *Dispatcher) dispatch(kind string, order domain.Order, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification panicked", zap.String("kind", kind), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.log.Error("notification failed",
				zap.String("kind", kind),
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight notifications finish or ctx expires.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
