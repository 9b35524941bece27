package storefront

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FallbackOrderMessage is shown when the order service gives no reason.
const FallbackOrderMessage = "Unable to place your order, please try again"

var (
	ErrCheckoutBlocked = errors.New("storefront: checkout has unresolved issues")
	ErrInvalidCustomer = errors.New("storefront: invalid customer details")
)

type Customer struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,email,max=255"`
	Phone string `validate:"required,min=6,max=32"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type OrderPayload struct {
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
	Currency      string      `json:"currency"`
	Items         []OrderItem `json:"items"`
}

type OrderReceipt struct {
	OrderID    string  `json:"orderId"`
	Reference  string  `json:"reference"`
	Status     string  `json:"status"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
	PaymentURL string  `json:"paymentUrl,omitempty"`
}

// NeedsPayment reports whether the shopper must continue at PaymentURL.
func (r OrderReceipt) NeedsPayment() bool {
	return r.PaymentURL != ""
}

// OrderError carries the message to show the shopper.
type OrderError struct {
	Message string
	cause   error
}

func (e *OrderError) Error() string {
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.cause
}

// Checkout drives a purchase from the cart (or a single product) to a
// placed order.
type Checkout struct {
	cart      *CartStore
	validator *Validator
	orders    OrderPlacer
	currency  string
	validate  *validator.Validate
}

func NewCheckout(cart *CartStore, v *Validator, orders OrderPlacer, currency string) *Checkout {
	return &Checkout{
		cart:      cart,
		validator: v,
		orders:    orders,
		currency:  strings.ToUpper(currency),
		validate:  validator.New(),
	}
}

// Begin drops vanished products from the cart and validates what is left.
func (c *Checkout) Begin(ctx context.Context) (*CheckoutSession, error) {
	if _, err := c.cart.Reconcile(ctx); err != nil {
		return nil, err
	}
	return c.validator.Validate(ctx, c.cart.Items())
}

// BeginSingle validates buying qty units of one product outside the cart.
func (c *Checkout) BeginSingle(ctx context.Context, p Product, qty int) (*CheckoutSession, error) {
	if qty < 1 {
		qty = 1
	}
	return c.validator.ValidateSingle(ctx, LineItem{Product: p, CartQuantity: qty})
}

// Submit places the order for a session that can proceed. On success in cart
// mode the cart is cleared. Failures from the order service are returned as
// *OrderError. The request is never retried.
func (c *Checkout) Submit(ctx context.Context, customer Customer, session *CheckoutSession) (*OrderReceipt, error) {
	if session == nil || !session.CanProceed() {
		return nil, ErrCheckoutBlocked
	}
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Phone = strings.TrimSpace(customer.Phone)
	if err := c.validate.Struct(customer); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return nil, errors.Wrap(ErrInvalidCustomer, strings.Join(fields, ", "))
		}
		return nil, errors.Wrap(ErrInvalidCustomer, err.Error())
	}

	payload := OrderPayload{
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Currency:      c.currency,
	}
	for _, line := range session.Lines() {
		payload.Items = append(payload.Items, OrderItem{
			ProductID: line.ProductID,
			Price:     line.UnitPrice.InexactFloat64(),
			Quantity:  line.Quantity,
		})
	}

	receipt, err := c.orders.PlaceOrder(ctx, payload)
	if err != nil {
		msg := FallbackOrderMessage
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
			msg = apiErr.Message
		}
		zap.L().Error("order submission failed", zap.Error(err))
		return nil, &OrderError{Message: msg, cause: err}
	}

	if !session.Single() && c.cart != nil {
		if err := c.cart.Clear(ctx); err != nil {
			zap.L().Error("failed to clear cart after order",
				zap.String("reference", receipt.Reference), zap.Error(err))
		}
	}
	return receipt, nil
}
