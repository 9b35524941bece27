package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/orders"
	"github.com/jewelcraft/storefront/internal/webserver"
)

// orderReceipt is what the shopper client receives after checkout. A
// non-empty PaymentURL hands the shopper off to the payment provider.
type orderReceipt struct {
	OrderID    string  `json:"orderId"`
	Reference  string  `json:"reference"`
	Status     string  `json:"status"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
	PaymentURL string  `json:"paymentUrl,omitempty"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPOST("/orders", placeOrder)
}

func placeOrder(c echo.Context) error {
	var payload orders.PlaceRequest
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	o, err := GetAppContext(c).Orders().Place(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, newReceipt(o))
}

func newReceipt(o *domain.Order) orderReceipt {
	return orderReceipt{
		OrderID:    fmt.Sprint(o.ID),
		Reference:  o.Reference,
		Status:     o.Status,
		Total:      o.Total,
		Currency:   o.Currency,
		PaymentURL: o.PaymentURL,
	}
}

func listOrders(c echo.Context) error {
	page, limit := parsePagination(c)
	result, err := GetAppContext(c).Orders().List(c.Request().Context(), orders.OrderFilter{
		Page:   page,
		Limit:  limit,
		Status: strings.TrimSpace(c.QueryParam("status")),
		Email:  strings.TrimSpace(c.QueryParam("email")),
	})
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, result.Items, result.Pagination)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	o, err := GetAppContext(c).Orders().Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, o)
}
