// Package notify mails the shop owner and customers when orders are placed or
// stock runs low. It listens on the application event bus.
package notify

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/jewelcraft/storefront/config"
	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/orders"
	"github.com/jewelcraft/storefront/pkg/common"
)

type Mailer interface {
	Send(to []string, subject, body string) error
}

// SMTPMailer sends plain text mail through the configured relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return errors.Wrapf(err, "send mail %q", subject)
	}
	return nil
}

type Notifier struct {
	mailer  Mailer
	shop    string
	adminTo []string
}

// NewNotifier builds a notifier. adminTo is a comma separated address list.
func NewNotifier(mailer Mailer, shop, adminTo string) *Notifier {
	return &Notifier{mailer: mailer, shop: shop, adminTo: common.SplitTrim(adminTo, ",")}
}

// Subscribe attaches the handlers to bus. Handlers run asynchronously so a
// slow relay never delays the checkout response.
func (n *Notifier) Subscribe(bus EventBus.Bus) error {
	if err := bus.SubscribeAsync(orders.TopicOrderPlaced, n.OrderPlaced, false); err != nil {
		return errors.Wrap(err, "subscribe order events")
	}
	if err := bus.SubscribeAsync(catalog.TopicStockLow, n.StockLow, false); err != nil {
		return errors.Wrap(err, "subscribe stock events")
	}
	return nil
}

func (n *Notifier) OrderPlaced(order domain.Order) {
	subject := fmt.Sprintf("[%s] Order %s received", n.shop, order.Reference)
	body := renderOrder(order)

	if order.CustomerEmail != "" {
		if err := n.mailer.Send([]string{order.CustomerEmail}, subject, body); err != nil {
			zap.L().Error("order confirmation mail failed",
				zap.String("reference", order.Reference), zap.Error(err))
		}
	}
	if len(n.adminTo) > 0 {
		if err := n.mailer.Send(n.adminTo, "[admin] "+subject, body); err != nil {
			zap.L().Error("order admin mail failed",
				zap.String("reference", order.Reference), zap.Error(err))
		}
	}
}

func (n *Notifier) StockLow(products []domain.Product) {
	if len(products) == 0 || len(n.adminTo) == 0 {
		return
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tQuantity")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%d\n", p.ID, p.Name, p.Quantity)
	}
	_ = w.Flush()

	subject := fmt.Sprintf("[%s] %d products running low", n.shop, len(products))
	if err := n.mailer.Send(n.adminTo, subject, buf.String()); err != nil {
		zap.L().Error("stock alert mail failed", zap.Int("products", len(products)), zap.Error(err))
	}
}

func renderOrder(o domain.Order) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hello %s,\n\n", o.CustomerName)
	fmt.Fprintf(&buf, "We received your order %s (status: %s).\n\n", o.Reference, o.Status)
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, item := range o.Items {
		fmt.Fprintf(w, "%s\tx%d\t%.2f %s\n", item.ProductName, item.Quantity, item.Price, o.Currency)
	}
	_ = w.Flush()
	fmt.Fprintf(&buf, "\nTotal: %.2f %s\n", o.Total, o.Currency)
	if o.PaymentURL != "" {
		fmt.Fprintf(&buf, "Complete your payment: %s\n", o.PaymentURL)
	}
	return buf.String()
}
