package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/testutil"
)

type fakeGateway struct {
	url   string
	err   error
	calls int
}

func (g *fakeGateway) CreatePayment(_ context.Context, _ *domain.Order) (string, error) {
	g.calls++
	return g.url, g.err
}

type fixture struct {
	db      *gorm.DB
	ring    domain.Product
	earring domain.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	c := testutil.SeedCategory(t, db, "Jewelry")
	return fixture{
		db:      db,
		ring:    testutil.SeedProduct(t, db, domain.Product{Name: "Ring", Price: 100, Discount: 20, Quantity: 5, Availability: true, CategoryID: c.ID}),
		earring: testutil.SeedProduct(t, db, domain.Product{Name: "Earring", Price: 45.5, Quantity: 1, Availability: true, CategoryID: c.ID}),
	}
}

func (f fixture) product(t *testing.T, id int64) domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return p
}

func request(items ...ItemRequest) PlaceRequest {
	return PlaceRequest{
		CustomerName:  "Lan Nguyen",
		CustomerEmail: "Lan@Example.com",
		CustomerPhone: "+84 90 123 4567",
		Items:         items,
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	bus := EventBus.New()
	var published []domain.Order
	require.NoError(t, bus.Subscribe(TopicOrderPlaced, func(o domain.Order) {
		published = append(published, o)
	}))
	svc := NewService(f.db, nil, bus, "USD")

	order, err := svc.Place(context.Background(), request(
		ItemRequest{ProductID: f.ring.ID, Price: 80, Quantity: 3},
		ItemRequest{ProductID: f.earring.ID, Price: 45.5, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "lan@example.com", order.CustomerEmail)
	assert.Equal(t, 285.5, order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 80.0, order.Items[0].Price)
	assert.Empty(t, order.PaymentURL)

	ring := f.product(t, f.ring.ID)
	assert.Equal(t, 2, ring.Quantity)
	assert.True(t, ring.Availability)

	earring := f.product(t, f.earring.ID)
	assert.Equal(t, 0, earring.Quantity)
	assert.False(t, earring.Availability, "selling the last unit clears availability")

	require.Len(t, published, 1)
	assert.Equal(t, order.ID, published[0].ID)

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, order.Reference, stored.Reference)
}

func TestPlaceOrderUsesCatalogPrice(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")

	order, err := svc.Place(context.Background(), request(ItemRequest{ProductID: f.ring.ID, Price: 1, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, 80.0, order.Items[0].Price)
	assert.Equal(t, 80.0, order.Total)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")

	_, err := svc.Place(context.Background(), request(
		ItemRequest{ProductID: f.ring.ID, Quantity: 2},
		ItemRequest{ProductID: f.earring.ID, Quantity: 2},
	))
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "INSUFFICIENT_STOCK", ae.Code)
	details := ae.Details.(map[string]interface{})
	assert.Equal(t, 1, details["availableQuantity"])
	assert.Equal(t, 2, details["requestedQuantity"])

	assert.Equal(t, 5, f.product(t, f.ring.ID).Quantity, "earlier lines are rolled back")
	assert.Equal(t, 1, f.product(t, f.earring.ID).Quantity)

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderLastUnitOnlyOnce(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")

	_, err := svc.Place(context.Background(), request(ItemRequest{ProductID: f.earring.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.Place(context.Background(), request(ItemRequest{ProductID: f.earring.ID, Quantity: 1}))
	assert.True(t, apperr.IsConflict(err))
}

func TestPlaceOrderMergesRepeatedLines(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")

	order, err := svc.Place(context.Background(), request(
		ItemRequest{ProductID: f.ring.ID, Quantity: 1},
		ItemRequest{ProductID: f.ring.ID, Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 2, f.product(t, f.ring.ID).Quantity)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")
	ctx := context.Background()

	tests := []struct {
		name string
		req  PlaceRequest
		code string
	}{
		{"no items", request(), "EMPTY_ORDER"},
		{"zero quantity", request(ItemRequest{ProductID: f.ring.ID}), "INVALID_QUANTITY"},
		{"unknown product", request(ItemRequest{ProductID: 99999, Quantity: 1}), "PRODUCT_NOT_FOUND"},
		{"bad currency", func() PlaceRequest {
			r := request(ItemRequest{ProductID: f.ring.ID, Quantity: 1})
			r.Currency = "US"
			return r
		}(), "INVALID_CURRENCY"},
		{"missing name", func() PlaceRequest {
			r := request(ItemRequest{ProductID: f.ring.ID, Quantity: 1})
			r.CustomerName = " "
			return r
		}(), "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(ctx, tt.req)
			require.Error(t, err)
			ae := apperr.As(err)
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
	assert.Equal(t, 5, f.product(t, f.ring.ID).Quantity)
}

func TestPlaceOrderCurrencyNormalized(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")

	r := request(ItemRequest{ProductID: f.ring.ID, Quantity: 1})
	r.Currency = "vnd"
	order, err := svc.Place(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "VND", order.Currency)
}

func TestPlaceOrderWithPaymentRedirect(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{url: "https://pay.example.com/session/abc"}
	svc := NewService(f.db, gw, nil, "USD")

	order, err := svc.Place(context.Background(), request(ItemRequest{ProductID: f.ring.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, gw.url, order.PaymentURL)
	assert.Equal(t, 1, gw.calls)

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, gw.url, stored.PaymentURL)
}

func TestPlaceOrderPaymentFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{err: errors.New("gateway down")}
	svc := NewService(f.db, gw, nil, "USD")

	_, err := svc.Place(context.Background(), request(
		ItemRequest{ProductID: f.ring.ID, Quantity: 2},
		ItemRequest{ProductID: f.earring.ID, Quantity: 1},
	))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.As(err).Kind)

	ring := f.product(t, f.ring.ID)
	assert.Equal(t, 5, ring.Quantity)
	earring := f.product(t, f.earring.ID)
	assert.Equal(t, 1, earring.Quantity)
	assert.True(t, earring.Availability)

	var orders []domain.Order
	require.NoError(t, f.db.Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderPaymentFailed, orders[0].Status)
}

func TestPaymentFailureRestoresAvailabilityAfterConcurrentSale(t *testing.T) {
	f := newFixture(t)
	// another buyer takes 3 rings between the stock read and the reservation
	sold := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:concurrent_sale", func(db *gorm.DB) {
		if sold || db.Statement.Table != "shop_product" {
			return
		}
		sold = true
		db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE shop_product SET quantity = quantity - 3 WHERE id = ?", f.ring.ID)
	}))
	svc := NewService(f.db, &fakeGateway{err: errors.New("gateway down")}, nil, "USD")

	_, err := svc.Place(context.Background(), request(ItemRequest{ProductID: f.ring.ID, Quantity: 2}))
	require.Error(t, err)
	require.True(t, sold)

	ring := f.product(t, f.ring.ID)
	assert.Equal(t, 2, ring.Quantity)
	assert.True(t, ring.Availability)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, nil, "USD")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Place(ctx, request(ItemRequest{ProductID: f.ring.ID, Quantity: 1}))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, OrderFilter{Page: 1, Limit: 2, Email: "LAN@example.com"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)
	assert.Len(t, page.Items[0].Items, 1)

	none, err := svc.List(ctx, OrderFilter{Status: domain.OrderPaymentFailed})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = svc.Get(ctx, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestHTTPGateway(t *testing.T) {
	var got paymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		if got.Amount <= 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"amount must be positive"}`))
			return
		}
		_, _ = w.Write([]byte(`{"url":"https://pay.example.com/r/` + got.Reference + `"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "https://shop.example.com/thanks", time.Second)
	url, err := gw.CreatePayment(context.Background(), &domain.Order{Reference: "ref-1", Total: 80, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/r/ref-1", url)
	assert.Equal(t, "https://shop.example.com/thanks", got.ReturnURL)

	_, err = gw.CreatePayment(context.Background(), &domain.Order{Reference: "ref-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be positive")
}
