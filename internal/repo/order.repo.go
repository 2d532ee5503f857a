package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"order-reconciler/internal/domain"
)

type OrderRepo interface {
	// tx *sql.Tx -> order and items are written in the caller's transaction
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByReference(ctx context.Context, reference string) (*domain.Order, error)
	// Lock* take a row lock held until tx ends
	LockById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	LockByReference(ctx context.Context, tx *sql.Tx, reference string) (*domain.Order, error)
	ListItems(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) ([]domain.OrderItem, error)
	MarkPaymentCompleted(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, transactionId string) error
	MarkPaymentFailed(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) error
	UpdateShippingStatus(ctx context.Context, orderId uuid.UUID, status domain.OrderStatus) error
	// ClaimStalePending stamps last_checked_at on the batch it returns
	ClaimStalePending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]domain.Order, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) exec(tx *sql.Tx) querier {
	if tx == nil {
		return r.db
	}
	return tx
}

const orderColumns = `id, order_number, payment_reference, customer_id, status, payment_status,
	transaction_id, subtotal, shipping, tax, total, currency,
	shipping_name, shipping_email, shipping_address, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.PaymentReference,
		&o.CustomerID,
		&o.Status,
		&o.PaymentStatus,
		&o.TransactionID,
		&o.Subtotal,
		&o.Shipping,
		&o.Tax,
		&o.Total,
		&o.Currency,
		&o.ShippingInfo.Name,
		&o.ShippingInfo.Email,
		&o.ShippingInfo.Address,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	if len(order.Items) == 0 {
		return errors.New("order has no items")
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		order.ID, order.OrderNumber, order.PaymentReference, order.CustomerID,
		order.Status, order.PaymentStatus, order.TransactionID,
		order.Subtotal, order.Shipping, order.Tax, order.Total, order.Currency,
		order.ShippingInfo.Name, order.ShippingInfo.Email, order.ShippingInfo.Address,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, item_type, product_id, title, variant_name, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, order.ID, item.ItemType, item.ProductID, item.Title, item.VariantName,
			item.Quantity, item.Price, item.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindByReference matches the provider reference or the order number,
// ignoring case, since providers may echo either form.
func (r *orderRepo) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	return r.findOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders
		WHERE lower(payment_reference) = lower($1) OR lower(order_number) = lower($1)
		ORDER BY created_at LIMIT 1`, reference)
}

func (r *orderRepo) LockById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepo) LockByReference(ctx context.Context, tx *sql.Tx, reference string) (*domain.Order, error) {
	return r.findOne(ctx, tx, `SELECT `+orderColumns+` FROM orders
		WHERE lower(payment_reference) = lower($1) OR lower(order_number) = lower($1)
		ORDER BY created_at LIMIT 1 FOR UPDATE`, reference)
}

func (r *orderRepo) findOne(ctx context.Context, q querier, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return order, nil
}

func (r *orderRepo) ListItems(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.exec(tx).QueryContext(ctx, `
		SELECT id, order_id, item_type, product_id, title, variant_name, quantity, price, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id`, orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ItemType,
			&it.ProductID,
			&it.Title,
			&it.VariantName,
			&it.Quantity,
			&it.Price,
			&it.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepo) MarkPaymentCompleted(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, transactionId string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2,
		    status = $3,
		    transaction_id = COALESCE(NULLIF($4, ''), transaction_id),
		    updated_at = now()
		WHERE id = $1`,
		orderId, domain.PaymentCompleted, domain.OrderProcessing, transactionId,
	)
	return err
}

func (r *orderRepo) MarkPaymentFailed(ctx context.Context, tx *sql.Tx, orderId uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = now()
		WHERE id = $1 AND payment_status <> $2`,
		orderId, domain.PaymentFailed,
	)
	return err
}

// UpdateShippingStatus writes only the status column so it cannot clobber a
// concurrent payment update.
func (r *orderRepo) UpdateShippingStatus(ctx context.Context, orderId uuid.UUID, status domain.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE id = $2", status, orderId)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ClaimStalePending returns up to limit Pending orders created between maxAge
// and minAge ago, least recently checked first, and marks them checked. Orders
// the provider cannot decide on rotate to the back instead of starving newer
// ones. A non-positive maxAge means no upper bound.
func (r *orderRepo) ClaimStalePending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]domain.Order, error) {
	now := time.Now()
	notBefore := time.Unix(0, 0)
	if maxAge > 0 {
		notBefore = now.Add(-maxAge)
	}

	rows, err := r.db.QueryContext(ctx, `
		UPDATE orders SET last_checked_at = now()
		WHERE id IN (
			SELECT id FROM orders
			WHERE payment_status = $1 AND created_at < $2 AND created_at > $3
			ORDER BY last_checked_at NULLS FIRST, created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+orderColumns,
		domain.PaymentPending, now.Add(-minAge), notBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
