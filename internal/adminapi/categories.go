package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/webserver"
)

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory, audit("category.create"))
	webserver.ApiPUT("/categories/:id", updateCategory, audit("category.update"))
	webserver.ApiDELETE("/categories/:id", deleteCategory, audit("category.delete"))
}

func listCategories(c echo.Context) error {
	page, limit := parsePagination(c)
	search := strings.TrimSpace(c.QueryParam("search"))
	if search == "" {
		search = strings.TrimSpace(c.QueryParam("q"))
	}
	result, err := GetAppContext(c).Catalog().ListCategories(c.Request().Context(), catalog.CategoryFilter{
		Page:   page,
		Limit:  limit,
		Search: search,
		Status: strings.TrimSpace(c.QueryParam("status")),
	})
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, result.Items, result.Pagination)
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	cat, err := GetAppContext(c).Catalog().GetCategory(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	var payload catalog.CategoryInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	cat, err := GetAppContext(c).Catalog().CreateCategory(c.Request().Context(), payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, cat)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	var payload catalog.CategoryUpdate
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	cat, err := GetAppContext(c).Catalog().UpdateCategory(c.Request().Context(), id, payload)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, cat)
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return failErr(c, err)
	}
	if err := GetAppContext(c).Catalog().DeleteCategory(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"id": fmt.Sprint(id)})
}
