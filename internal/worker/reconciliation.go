package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/service"
)

type StaleOrderClaimer interface {
	ClaimStalePending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]domain.Order, error)
}

// ReconciliationWorker asks the provider about orders still Pending after
// minAge. It covers lost webhooks and customers who never came back from the
// checkout page. Orders older than maxAge are no longer asked about. Outcomes
// go through the confirmation service, so the worker never writes payment
// state itself.
type ReconciliationWorker struct {
	orders   StaleOrderClaimer
	confirm  service.ConfirmationService
	interval time.Duration
	minAge   time.Duration
	maxAge   time.Duration
	batch    int
	logger   *zap.Logger
}

func NewReconciliationWorker(
	orders StaleOrderClaimer,
	confirm service.ConfirmationService,
	interval time.Duration,
	minAge time.Duration,
	maxAge time.Duration,
	batch int,
	logger *zap.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orders:   orders,
		confirm:  confirm,
		interval: interval,
		minAge:   minAge,
		maxAge:   maxAge,
		batch:    batch,
		logger:   logger,
	}
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables the worker.
func (rw *ReconciliationWorker) Run(ctx context.Context) {
	if rw.interval <= 0 {
		rw.logger.Info("reconciliation worker disabled")
		return
	}

	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started",
		zap.Duration("interval", rw.interval),
		zap.Duration("min_age", rw.minAge),
		zap.Duration("max_age", rw.maxAge))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if _, err := rw.RunOnce(ctx); err != nil {
				rw.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepStats counts what one sweep decided.
type SweepStats struct {
	Checked      int
	Paid         int
	Failed       int
	Inconclusive int
}

// RunOnce verifies one batch of stale Pending orders. Per-order errors are
// logged; the claim moves those orders behind everything not yet checked.
func (rw *ReconciliationWorker) RunOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	stale, err := rw.orders.ClaimStalePending(ctx, rw.minAge, rw.maxAge, rw.batch)
	if err != nil {
		return stats, err
	}
	if len(stale) == 0 {
		return stats, nil
	}

	rw.logger.Info("found stale pending orders", zap.Int("count", len(stale)))

	for _, order := range stale {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++

		conf, err := rw.confirm.ConfirmOrder(ctx, order, domain.SourceSweeper)
		if err != nil {
			rw.logger.Warn("stale order confirmation failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
			stats.Inconclusive++
			continue
		}

		switch conf.Outcome {
		case service.ConfirmPaid:
			stats.Paid++
			rw.logger.Info("stale order settled as paid", zap.String("order_id", order.ID.String()))
		case service.ConfirmFailed:
			stats.Failed++
			rw.logger.Info("stale order settled as failed", zap.String("order_id", order.ID.String()))
		default:
			stats.Inconclusive++
		}
	}
	return stats, nil
}
