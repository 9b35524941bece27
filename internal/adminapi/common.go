package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/app"
	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/webserver"
)

// Response is the envelope of every successful API reply.
type Response struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

// Init registers all API routes on the default web server.
func Init() {
	registerProductRoutes()
	registerCategoryRoutes()
	registerOrderRoutes()
	registerDashboardRoutes()
	registerSchedulerRoutes()
	registerAuditRoutes()
	registerDbmsRoutes()
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func paged(c echo.Context, data interface{}, pg domain.Pagination) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: &pg})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Success: false, Code: code, Message: message, Details: details})
}

// failErr maps a service error onto its status code. Internal causes are
// logged, never returned to the caller.
func failErr(c echo.Context, err error) error {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal {
		zap.L().Error(ae.Message,
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return fail(c, http.StatusInternalServerError, ae.Code, ae.Message, nil)
	}
	return fail(c, ae.Kind.HTTPStatus(), ae.Code, ae.Message, ae.Details)
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]map[string]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := cast.ToInt64E(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperr.Validation("INVALID_ID", "Invalid "+name)
	}
	return id, nil
}

// parsePagination reads page and limit (pageSize is accepted as an alias).
func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	limitStr := c.QueryParam("limit")
	if limitStr == "" {
		limitStr = c.QueryParam("pageSize")
	}
	limit := cast.ToInt(limitStr)
	return domain.NormalizePage(page, limit)
}

func queryInt64(c echo.Context, names ...string) (*int64, error) {
	for _, name := range names {
		if v := strings.TrimSpace(c.QueryParam(name)); v != "" {
			n, err := cast.ToInt64E(v)
			if err != nil {
				return nil, apperr.Validation("INVALID_FILTER", "Invalid "+name).
					WithDetails(map[string]string{"param": name, "value": v})
			}
			return &n, nil
		}
	}
	return nil, nil
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, apperr.Validation("INVALID_FILTER", "Invalid "+name).
			WithDetails(map[string]string{"param": name, "value": v})
	}
	return &f, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, apperr.Validation("INVALID_FILTER", "Invalid "+name).
			WithDetails(map[string]string{"param": name, "value": v})
	}
	return &b, nil
}

// parseIDs converts opaque string ids to int64.
func parseIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := cast.ToInt64E(strings.TrimSpace(s))
		if err != nil || id <= 0 {
			return nil, apperr.Validation("INVALID_ID", "Invalid product id").
				WithDetails(map[string]string{"id": s})
		}
		ids = append(ids, id)
	}
	return ids, nil
}
