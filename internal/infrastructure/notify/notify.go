// Package notify owns the order email triggers. Rendering and transport sit
// behind Mailer; the Dispatcher makes every trigger fire-and-forget so a mail
// failure never reaches the payment path.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"order-reconciler/internal/domain"
)

type Notifier interface {
	OrderCreated(ctx context.Context, order domain.Order) error
	PaymentSucceeded(ctx context.Context, order domain.Order) error
	PaymentFailed(ctx context.Context, order domain.Order, reason string) error
}

type Message struct {
	To       string
	Template string
	Subject  string
	Data     map[string]string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const (
	TemplateOrderCreated     = "order-created"
	TemplatePaymentSucceeded = "payment-succeeded"
	TemplatePaymentFailed    = "payment-failed"
)

// EmailNotifier addresses every trigger to the customer and to the shop admin.
type EmailNotifier struct {
	mailer     Mailer
	adminEmail string
}

func NewEmailNotifier(mailer Mailer, adminEmail string) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, adminEmail: adminEmail}
}

func (n *EmailNotifier) OrderCreated(ctx context.Context, order domain.Order) error {
	return n.both(ctx, order, TemplateOrderCreated,
		fmt.Sprintf("Order %s received", order.OrderNumber), nil)
}

func (n *EmailNotifier) PaymentSucceeded(ctx context.Context, order domain.Order) error {
	return n.both(ctx, order, TemplatePaymentSucceeded,
		fmt.Sprintf("Payment confirmed for order %s", order.OrderNumber), nil)
}

func (n *EmailNotifier) PaymentFailed(ctx context.Context, order domain.Order, reason string) error {
	return n.both(ctx, order, TemplatePaymentFailed,
		fmt.Sprintf("Payment failed for order %s", order.OrderNumber),
		map[string]string{"reason": reason})
}

// both sends to customer and admin; one failing does not stop the other.
func (n *EmailNotifier) both(ctx context.Context, order domain.Order, template, subject string, extra map[string]string) error {
	data := map[string]string{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
		"total":       order.Total.StringFixed(2),
		"currency":    order.Currency,
		"name":        order.ShippingInfo.Name,
	}
	for k, v := range extra {
		data[k] = v
	}

	var errs []error
	for _, to := range []string{order.ShippingInfo.Email, n.adminEmail} {
		if to == "" {
			continue
		}
		if err := n.mailer.Send(ctx, Message{To: to, Template: template, Subject: subject, Data: data}); err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", template, to, err))
		}
	}
	return errors.Join(errs...)
}

// LogMailer writes messages to the log instead of a mail transport.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("email queued",
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.String("subject", msg.Subject),
		zap.String("order_number", msg.Data["orderNumber"]))
	return nil
}
