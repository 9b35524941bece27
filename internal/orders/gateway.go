package orders

import (
	"context"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"github.com/jewelcraft/storefront/internal/domain"
)

type paymentRequest struct {
	Reference     string  `json:"reference"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	ReturnURL     string  `json:"returnUrl,omitempty"`
}

type paymentResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// HTTPGateway posts a payment request to an external checkout provider and
// expects {"url": "..."} back.
type HTTPGateway struct {
	endpoint  string
	returnURL string
	timeout   time.Duration
}

func NewHTTPGateway(endpoint, returnURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{endpoint: endpoint, returnURL: returnURL, timeout: timeout}
}

func (g *HTTPGateway) CreatePayment(ctx context.Context, order *domain.Order) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		rsp  paymentResponse
		code int
	)
	err := gout.POST(g.endpoint).
		WithContext(ctx).
		SetJSON(paymentRequest{
			Reference:     order.Reference,
			Amount:        order.Total,
			Currency:      order.Currency,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
			ReturnURL:     g.returnURL,
		}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "payment gateway request")
	}
	if code < 200 || code >= 300 {
		if rsp.Message != "" {
			return "", errors.Errorf("payment gateway returned %d: %s", code, rsp.Message)
		}
		return "", errors.Errorf("payment gateway returned %d", code)
	}
	if rsp.URL == "" {
		return "", errors.New("payment gateway returned no redirect url")
	}
	return rsp.URL, nil
}
