package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/webserver"
	"github.com/jewelcraft/storefront/pkg/common"
)

type availabilityPayload struct {
	IDs          []string `json:"ids" validate:"required,min=1,max=500"`
	Availability *bool    `json:"availability" validate:"required"`
}

type quantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// registerProductRoutes registers product catalog endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/low-stock", lowStockProducts)
	webserver.ApiGET("/products/export", exportProducts)
	webserver.ApiPATCH("/products/availability", bulkUpdateAvailability, audit("product.availability"))
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct, audit("product.create"))
	webserver.ApiPUT("/products/:id", updateProduct, audit("product.update"))
	webserver.ApiPATCH("/products/:id/quantity", updateProductQuantity, audit("product.quantity"))
	webserver.ApiDELETE("/products/:id", deleteProduct, audit("product.delete"))
}

func listProducts(c echo.Context) error {
	page, limit := parsePagination(c)
	f := catalog.ProductFilter{
		Page:   page,
		Limit:  limit,
		Tags:   common.SplitTrim(c.QueryParam("tags"), ","),
		Search: strings.TrimSpace(c.QueryParam("search")),
		Sort:   c.QueryParam("sort"),
		Order:  c.QueryParam("order"),
	}
	if f.Search == "" {
		f.Search = strings.TrimSpace(c.QueryParam("q"))
	}

	var err error
	if f.CategoryID, err = queryInt64(c, "categoryId", "category"); err != nil {
		return failErr(c, err)
	}
	if f.Availability, err = queryBool(c, "availability"); err != nil {
		return failErr(c, err)
	}
	if f.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return failErr(c, err)
	}
	if f.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return failErr(c, err)
	}

	result, err := GetAppContext(c).Catalog().ListProducts(c.Request().Context(), f)
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, result.Items, result.Pagination)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	p, err := GetAppContext(c).Catalog().GetProduct(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload catalog.ProductInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	p, err := GetAppContext(c).Catalog().CreateProduct(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	var payload catalog.ProductUpdate
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	p, err := GetAppContext(c).Catalog().UpdateProduct(c.Request().Context(), id, payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	if err := GetAppContext(c).Catalog().DeleteProduct(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"id": fmt.Sprint(id)})
}

func bulkUpdateAvailability(c echo.Context) error {
	var payload availabilityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	ids, err := parseIDs(payload.IDs)
	if err != nil {
		return failErr(c, err)
	}
	updated, err := GetAppContext(c).Catalog().BulkUpdateAvailability(c.Request().Context(), ids, *payload.Availability)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{
		"requested": len(ids),
		"updated":   updated,
	})
}

func updateProductQuantity(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	p, err := GetAppContext(c).Catalog().UpdateQuantity(c.Request().Context(), id, *payload.Quantity)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func lowStockProducts(c echo.Context) error {
	threshold := GetAppContext(c).Config().Shop.LowStockThreshold
	if v := strings.TrimSpace(c.QueryParam("threshold")); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_THRESHOLD", "Threshold must be an integer", nil)
		}
		threshold = n
	}
	rows, err := GetAppContext(c).Catalog().LowStock(c.Request().Context(), threshold)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, rows)
}

func exportProducts(c echo.Context) error {
	var buf bytes.Buffer
	if err := GetAppContext(c).Catalog().ExportCSV(c.Request().Context(), &buf); err != nil {
		return failErr(c, err)
	}
	filename := fmt.Sprintf("products-%s.csv", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
