package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/webserver"
)

func registerAuditRoutes() {
	webserver.ApiGET("/audit-logs", listAuditLogs)
}

// audit records the request in shop_audit_log when the handler succeeds.
// A failed insert is logged and never changes the response.
func audit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			status := c.Response().Status
			if status >= http.StatusMultipleChoices {
				return nil
			}
			entry := domain.AuditLog{
				Action:    action,
				Method:    c.Request().Method,
				Path:      c.Request().URL.Path,
				Target:    c.Param("id"),
				RemoteIP:  c.RealIP(),
				Status:    status,
				CreatedAt: time.Now(),
			}
			if err := GetDB(c).Create(&entry).Error; err != nil {
				zap.L().Warn("audit log insert failed", zap.String("action", action), zap.Error(err))
			}
			return nil
		}
	}
}

// listAuditLogs pages the audit trail, newest first
// @Summary list audit logs
// @Tags Audit
// @Param action query string false "Action prefix, e.g. product."
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Router /api/v1/audit-logs [get]
func listAuditLogs(c echo.Context) error {
	db := GetDB(c)
	page, limit := parsePagination(c)

	query := db.Model(&domain.AuditLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		query = query.Where("action LIKE ?", action+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return failErr(c, apperr.Internal(err, "Failed to count audit logs"))
	}
	pg := domain.NewPagination(page, limit, total)

	var rows []domain.AuditLog
	if err := query.Order("id DESC").Limit(pg.Limit).Offset(pg.Offset()).Find(&rows).Error; err != nil {
		return failErr(c, apperr.Internal(err, "Failed to list audit logs"))
	}
	return paged(c, rows, pg)
}
