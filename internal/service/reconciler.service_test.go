package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/testutil"
)

func TestReconcileSuccessCompletesAndEnqueuesDigitalItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(
		testutil.EBook("10.00"),
		testutil.Audiobook("15.00"),
		testutil.Paperback("20.00"),
		testutil.Tshirt("8.00", 2),
	)
	h.seed(t, order)

	res, err := h.reconciler.Reconcile(ctx, success(order, domain.SourceWebhook))
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Transitioned)
	assert.Equal(t, 2, res.Enqueued)
	assert.Equal(t, domain.PaymentCompleted, res.PaymentStatus)

	got := h.order(t, order)
	assert.Equal(t, domain.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, domain.OrderProcessing, got.Status)
	assert.Equal(t, "ch_"+order.OrderNumber, got.TransactionID)

	queued := h.queued(t, order)
	require.Len(t, queued, 2)
	for _, q := range queued {
		assert.Equal(t, domain.FulfillmentPending, q.Status)
		assert.Equal(t, "ada@example.com", q.Email)
	}

	_, succeeded, failed := h.notify.counts()
	assert.Equal(t, 1, succeeded)
	assert.Zero(t, failed)
}

func TestReconcileSuccessTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	h.seed(t, order)

	for i := 0; i < 3; i++ {
		_, err := h.reconciler.Reconcile(ctx, success(order, domain.SourceRedirect))
		require.NoError(t, err)
	}

	assert.Len(t, h.queued(t, order), 1)
	_, succeeded, _ := h.notify.counts()
	assert.Equal(t, 1, succeeded)
}

func TestReconcileConcurrentSuccessSignals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"), testutil.Audiobook("12.00"))
	h.seed(t, order)

	results := make([]domain.ReconcileResult, 8)
	var g errgroup.Group
	for i := range results {
		source := domain.SourceWebhook
		if i%2 == 1 {
			source = domain.SourceRedirect
		}
		g.Go(func() error {
			res, err := h.reconciler.Reconcile(ctx, success(order, source))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	transitions, enqueued := 0, 0
	for _, r := range results {
		if r.Transitioned {
			transitions++
		}
		enqueued += r.Enqueued
	}
	assert.Equal(t, 1, transitions)
	assert.Equal(t, 2, enqueued)
	assert.Len(t, h.queued(t, order), 2)

	_, succeeded, _ := h.notify.counts()
	assert.Equal(t, 1, succeeded)
}

func TestReconcileFailureAfterSuccessDoesNotRegress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	h.seed(t, order)

	_, err := h.reconciler.Reconcile(ctx, success(order, domain.SourceWebhook))
	require.NoError(t, err)

	res, err := h.reconciler.Reconcile(ctx, failure(order, "Declined"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, res.PaymentStatus)

	assert.Equal(t, domain.PaymentCompleted, h.order(t, order).PaymentStatus)
	_, _, failed := h.notify.counts()
	assert.Zero(t, failed)
}

func TestReconcileFailureThenRetrySucceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	h.seed(t, order)

	res, err := h.reconciler.Reconcile(ctx, failure(order, "Insufficient Funds"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, res.PaymentStatus)
	assert.Empty(t, h.queued(t, order))

	// duplicate failure observations each notify
	_, err = h.reconciler.Reconcile(ctx, failure(order, "Insufficient Funds"))
	require.NoError(t, err)
	_, _, failed := h.notify.counts()
	assert.Equal(t, 2, failed)
	assert.Equal(t, domain.PaymentFailed, h.order(t, order).PaymentStatus)

	res, err = h.reconciler.Reconcile(ctx, success(order, domain.SourceWebhook))
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, domain.PaymentCompleted, h.order(t, order).PaymentStatus)
	assert.Len(t, h.queued(t, order), 1)
}

func TestReconcileHealsMissingQueueRowsWithoutResendingEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	h.seed(t, order)

	// status written, process died before enqueue
	tx, err := h.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, h.orders.MarkPaymentCompleted(ctx, tx, order.ID, "ch_1"))
	require.NoError(t, tx.Commit())

	res, err := h.reconciler.Reconcile(ctx, success(order, domain.SourceRedirect))
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, 1, res.Enqueued)
	assert.Len(t, h.queued(t, order), 1)

	_, succeeded, _ := h.notify.counts()
	assert.Zero(t, succeeded)
}

func TestReconcileUnknownOrderIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.reconciler.Reconcile(ctx, domain.PaymentSignal{
		Reference: "FOREIGN-REF",
		Outcome:   domain.OutcomeFailure,
		Source:    domain.SourceWebhook,
	})
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = h.reconciler.Reconcile(ctx, domain.PaymentSignal{
		OrderID: uuid.New(),
		Outcome: domain.OutcomeSuccess,
		Source:  domain.SourceRedirect,
	})
	require.NoError(t, err)
	assert.False(t, res.Found)

	created, succeeded, failed := h.notify.counts()
	assert.Zero(t, created+succeeded+failed)
}

func TestReconcileByReferenceIgnoresCase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	h.seed(t, order)

	res, err := h.reconciler.Reconcile(ctx, domain.PaymentSignal{
		Reference: strings.ToLower(order.PaymentReference),
		Outcome:   domain.OutcomeSuccess,
		Source:    domain.SourceWebhook,
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, order.ID, res.OrderID)
}

func TestReconcileRefundedOrderIgnoresSignals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := testutil.NewOrder(testutil.EBook("10.00"))
	order.PaymentStatus = domain.PaymentRefunded
	h.seed(t, order)

	res, err := h.reconciler.Reconcile(ctx, success(order, domain.SourceWebhook))
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, domain.PaymentRefunded, h.order(t, order).PaymentStatus)
	assert.Empty(t, h.queued(t, order))

	_, err = h.reconciler.Reconcile(ctx, failure(order, "x"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, h.order(t, order).PaymentStatus)
}

func TestReconcileRejectsMalformedSignals(t *testing.T) {
	h := newHarness(t)

	_, err := h.reconciler.Reconcile(context.Background(), domain.PaymentSignal{Outcome: domain.OutcomeSuccess})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = h.reconciler.Reconcile(context.Background(), domain.PaymentSignal{Reference: "x", Outcome: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
