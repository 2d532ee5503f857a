package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/domain"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/repo"
)

// Notifications are fire-and-forget email triggers.
type Notifications interface {
	OrderCreated(order domain.Order)
	PaymentSucceeded(order domain.Order)
	PaymentFailed(order domain.Order, reason string)
}

type CheckoutService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

type CartItem struct {
	ItemType    domain.ItemType `json:"itemType"`
	ProductID   string          `json:"productId"`
	Title       string          `json:"title"`
	VariantName string          `json:"variantName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	CustomerID string
	Items      []CartItem
	Shipping   domain.ShippingInfo
	// ShippingCost and Tax come from the pricing engine upstream.
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	// Total, when set, must match the server-side sum.
	Total *decimal.Decimal
}

type CheckoutResult struct {
	OrderID          uuid.UUID `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	AuthorizationURL string    `json:"authorizationUrl"`
}

type CheckoutConfig struct {
	CallbackURL     string
	Currency        string
	ProviderTimeout time.Duration
}

type checkoutService struct {
	db       *sql.DB
	orders   repo.OrderRepo
	provider payment.Provider
	notify   Notifications
	cfg      CheckoutConfig
	log      *zap.Logger
}

func NewCheckoutService(
	db *sql.DB,
	orders repo.OrderRepo,
	provider payment.Provider,
	notify Notifications,
	cfg CheckoutConfig,
	log *zap.Logger,
) CheckoutService {
	return &checkoutService{
		db:       db,
		orders:   orders,
		provider: provider,
		notify:   notify,
		cfg:      cfg,
		log:      log,
	}
}

// Checkout opens a provider session first and persists the order only once
// the provider has accepted it, so a rejected or timed-out initialisation
// leaves nothing behind.
func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	order, err := s.buildOrder(req)
	if err != nil {
		return nil, err
	}

	callback, err := callbackURL(s.cfg.CallbackURL, order.ID)
	if err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	session, err := s.provider.Initialize(initCtx, payment.InitializeRequest{
		Email:       order.ShippingInfo.Email,
		Amount:      domain.ToMinorUnits(order.Total),
		Currency:    order.Currency,
		Reference:   order.OrderNumber,
		CallbackURL: callback,
		Metadata: payment.Metadata{
			CustomerID:  order.CustomerID,
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
		},
	})
	if err != nil {
		s.log.Warn("payment session rejected",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}
	order.PaymentReference = session.Reference

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.Total.StringFixed(2)))

	s.notify.OrderCreated(*order)

	return &CheckoutResult{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		AuthorizationURL: session.AuthorizationURL,
	}, nil
}

func (s *checkoutService) buildOrder(req CheckoutRequest) (*domain.Order, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(now),
		CustomerID:    req.CustomerID,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		Shipping:      req.ShippingCost.Round(2),
		Tax:           req.Tax.Round(2),
		Currency:      s.cfg.Currency,
		ShippingInfo:  req.Shipping,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	subtotal := decimal.Zero
	for _, ci := range req.Items {
		item := domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ItemType:    ci.ItemType,
			ProductID:   ci.ProductID,
			Title:       ci.Title,
			VariantName: ci.VariantName,
			Quantity:    ci.Quantity,
			Price:       ci.Price.Round(2),
			CreatedAt:   now,
		}
		subtotal = subtotal.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}

	order.Subtotal = subtotal
	order.Total = subtotal.Add(order.Shipping).Add(order.Tax)

	if req.Total != nil && !req.Total.Round(2).Equal(order.Total) {
		return nil, fmt.Errorf("%w: total %s does not match items (%s)",
			domain.ErrInvalidRequest, req.Total.StringFixed(2), order.Total.StringFixed(2))
	}
	if !order.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", domain.ErrInvalidRequest)
	}
	return order, nil
}

func validateCheckout(req CheckoutRequest) error {
	invalid := func(msg string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(msg, args...))
	}

	if req.CustomerID == "" {
		return invalid("customer is required")
	}
	if len(req.Items) == 0 {
		return invalid("cart is empty")
	}
	if strings.TrimSpace(req.Shipping.Email) == "" || !strings.Contains(req.Shipping.Email, "@") {
		return invalid("shipping email is required")
	}
	if strings.TrimSpace(req.Shipping.Name) == "" {
		return invalid("shipping name is required")
	}
	if req.ShippingCost.IsNegative() || req.Tax.IsNegative() {
		return invalid("shipping and tax cannot be negative")
	}
	for i, it := range req.Items {
		if it.ItemType != domain.ItemBook && it.ItemType != domain.ItemMerch {
			return invalid("item %d: unknown type %q", i, it.ItemType)
		}
		if it.Quantity <= 0 {
			return invalid("item %d: quantity must be positive", i)
		}
		if it.Price.IsNegative() {
			return invalid("item %d: price cannot be negative", i)
		}
	}
	return nil
}

// NewOrderNumber returns ORD-<yyyymmdd>-<10 random hex chars>.
func NewOrderNumber(now time.Time) string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(r[:10]))
}

func callbackURL(base string, orderID uuid.UUID) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("callback url: %w", err)
	}
	q := u.Query()
	q.Set("orderId", orderID.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}
