// Package notify sends shopper-facing order notifications.
package notify

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer delivers order e-mails
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendStatusUpdate(ctx context.Context, order *domain.Order) error
}

// Message is a rendered e-mail
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// RenderConfirmation builds the confirmation e-mail for a placed order
func RenderConfirmation(order *domain.Order) Message {
	var text, html strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThanks for your order #%d.\n\n", recipientName(order), order.ID)
	fmt.Fprintf(&html, "<p>Hi %s,</p><p>Thanks for your order <strong>#%d</strong>.</p><ul>", recipientName(order), order.ID)
	for _, item := range order.Items {
		name := fmt.Sprintf("Product %d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		fmt.Fprintf(&text, "  %d x %s @ %s\n", item.Quantity, name, item.Price.StringFixed(2))
		fmt.Fprintf(&html, "<li>%d &times; %s @ %s</li>", item.Quantity, name, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&text, "\nTotal: %s\nPayment: %s (%s)\n", order.TotalAmount.StringFixed(2), order.PaymentMethod, order.PaymentStatus)
	fmt.Fprintf(&html, "</ul><p>Total: <strong>%s</strong><br>Payment: %s (%s)</p>", order.TotalAmount.StringFixed(2), order.PaymentMethod, order.PaymentStatus)

	return Message{
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Text:    text.String(),
		HTML:    html.String(),
	}
}

// RenderStatusUpdate builds the e-mail sent when an administrator changes the order status
func RenderStatusUpdate(order *domain.Order) Message {
	return Message{
		Subject: fmt.Sprintf("Order #%d is now %s", order.ID, order.OrderStatus),
		Text:    fmt.Sprintf("Hi %s,\n\nYour order #%d is now %s.\n", recipientName(order), order.ID, order.OrderStatus),
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>Your order <strong>#%d</strong> is now %s.</p>", recipientName(order), order.ID, order.OrderStatus),
	}
}

func recipientName(order *domain.Order) string {
	if order.User != nil && order.User.Name != "" {
		return order.User.Name
	}
	return "there"
}

// SendGridMailer sends e-mail through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

// NewSendGridMailer creates a mailer authenticated with apiKey
func NewSendGridMailer(apiKey, fromEmail, fromName string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

func (m *SendGridMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	return m.send(ctx, order, RenderConfirmation(order))
}

func (m *SendGridMailer) SendStatusUpdate(ctx context.Context, order *domain.Order) error {
	return m.send(ctx, order, RenderStatusUpdate(order))
}

func (m *SendGridMailer) send(ctx context.Context, order *domain.Order, msg Message) error {
	if order.User == nil || order.User.Email == "" {
		return fmt.Errorf("order %d has no recipient", order.ID)
	}

	to := mail.NewEmail(order.User.Name, order.User.Email)
	email := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send e-mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected e-mail: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.Info("E-mail sent",
		zap.Int64("order_id", order.ID),
		zap.String("subject", msg.Subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// LogMailer logs e-mails instead of sending them. Used when no SendGrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOrderConfirmation(_ context.Context, order *domain.Order) error {
	m.log(order, RenderConfirmation(order))
	return nil
}

func (m *LogMailer) SendStatusUpdate(_ context.Context, order *domain.Order) error {
	m.log(order, RenderStatusUpdate(order))
	return nil
}

func (m *LogMailer) log(order *domain.Order, msg Message) {
	m.logger.Info("E-mail suppressed (no SendGrid key)",
		zap.Int64("order_id", order.ID),
		zap.String("subject", msg.Subject),
	)
}
