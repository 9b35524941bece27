package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jewelcraft/storefront/pkg/pricing"
)

// ErrNotFound is returned by a ProductLookup when the product id no longer
// resolves in the catalog.
var ErrNotFound = errors.New("storefront: product not found")

// APIError is a non-success reply of the storefront API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront api: status %d", e.Status)
	}
	return fmt.Sprintf("storefront api: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

// Product is the catalog record as served by the API.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	Size         string   `json:"size,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Images       []string `json:"images,omitempty"`
	Price        float64  `json:"price"`
	Discount     float64  `json:"discount,omitempty"`
	PerUnit      string   `json:"perUnit,omitempty"`
	Quantity     int      `json:"quantity"`
	Availability bool     `json:"availability"`
	CategoryID   string   `json:"categoryId,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
}

// EffectivePrice is the unit price after discount, rounded to cents.
func (p Product) EffectivePrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(p.Price, p.Discount)
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, payload OrderPayload) (*OrderReceipt, error)
}

type envelope struct {
	Success bool                `json:"success"`
	Data    jsoniter.RawMessage `json:"data"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
}

func (e envelope) apiError(status int) *APIError {
	return &APIError{Status: status, Code: e.Code, Message: e.Message}
}

// Client talks to the storefront HTTP API. It implements ProductLookup and
// OrderPlacer.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		body []byte
		code int
	)
	err := gout.New(c.http).
		GET(c.baseURL + "/api/v1/products/" + url.PathEscape(id)).
		WithContext(ctx).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	if code == http.StatusNotFound {
		return nil, ErrNotFound
	}
	data, err := decodeEnvelope(code, body)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "decode product %s", id)
	}
	return &p, nil
}

func (c *Client) PlaceOrder(ctx context.Context, payload OrderPayload) (*OrderReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode order")
	}
	var (
		body []byte
		code int
	)
	err = gout.New(c.http).
		POST(c.baseURL + "/api/v1/orders").
		WithContext(ctx).
		SetHeader(gout.H{"Content-Type": "application/json"}).
		SetBody(raw).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	data, err := decodeEnvelope(code, body)
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	var receipt OrderReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, errors.Wrap(err, "decode order receipt")
	}
	return &receipt, nil
}

// decodeEnvelope unwraps {success, data} with the package codec. Non-2xx
// replies and success=false become *APIError.
func decodeEnvelope(code int, body []byte) (jsoniter.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if code >= http.StatusMultipleChoices {
			return nil, &APIError{Status: code}
		}
		return nil, errors.Wrap(err, "decode response")
	}
	if code >= http.StatusMultipleChoices || !env.Success {
		return nil, env.apiError(code)
	}
	return env.Data, nil
}
