package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"order-reconciler/internal/domain"
)

type FulfillmentRepo interface {
	// ExistingForOrder returns the order item ids that already have a queue row.
	ExistingForOrder(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) (map[uuid.UUID]bool, error)
	// Enqueue inserts item unless its order item is already queued; reports whether a row was written.
	Enqueue(ctx context.Context, tx *sql.Tx, item *domain.FulfillmentItem) (bool, error)
	ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.FulfillmentItem, error)
	ListPending(ctx context.Context, limit int) ([]domain.FulfillmentItem, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type fulfillmentRepo struct {
	db *sql.DB
}

func NewFulfillmentRepo(db *sql.DB) FulfillmentRepo {
	return &fulfillmentRepo{db: db}
}

func (r *fulfillmentRepo) exec(tx *sql.Tx) querier {
	if tx == nil {
		return r.db
	}
	return tx
}

const fulfillmentColumns = `id, order_item_id, order_id, status, email, attempts, last_error, created_at, updated_at`

func (r *fulfillmentRepo) ExistingForOrder(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.exec(tx).QueryContext(ctx,
		"SELECT order_item_id FROM fulfillment_queue WHERE order_id = $1", orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (r *fulfillmentRepo) Enqueue(ctx context.Context, tx *sql.Tx, item *domain.FulfillmentItem) (bool, error) {
	res, err := r.exec(tx).ExecContext(ctx, `
		INSERT INTO fulfillment_queue (id, order_item_id, order_id, status, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_item_id) DO NOTHING`,
		item.ID, item.OrderItemID, item.OrderID, item.Status, item.Email, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *fulfillmentRepo) ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.FulfillmentItem, error) {
	return r.list(ctx, `SELECT `+fulfillmentColumns+` FROM fulfillment_queue
		WHERE order_id = $1 ORDER BY created_at, id`, orderId)
}

func (r *fulfillmentRepo) ListPending(ctx context.Context, limit int) ([]domain.FulfillmentItem, error) {
	return r.list(ctx, `SELECT `+fulfillmentColumns+` FROM fulfillment_queue
		WHERE status = $1 ORDER BY created_at LIMIT $2`, domain.FulfillmentPending, limit)
}

func (r *fulfillmentRepo) list(ctx context.Context, query string, args ...any) ([]domain.FulfillmentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.FulfillmentItem
	for rows.Next() {
		var it domain.FulfillmentItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderItemID,
			&it.OrderID,
			&it.Status,
			&it.Email,
			&it.Attempts,
			&it.LastError,
			&it.CreatedAt,
			&it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *fulfillmentRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.mark(ctx, id, domain.FulfillmentSent, "")
}

func (r *fulfillmentRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.mark(ctx, id, domain.FulfillmentFailed, reason)
}

func (r *fulfillmentRepo) mark(ctx context.Context, id uuid.UUID, status domain.FulfillmentStatus, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fulfillment_queue
		SET status = $2, last_error = $3, attempts = attempts + 1, updated_at = $4
		WHERE id = $1`,
		id, status, reason, time.Now(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
