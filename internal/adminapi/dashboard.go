package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/webserver"
	"github.com/jewelcraft/storefront/pkg/metrics"
)

type dashboardSummary struct {
	Catalog *catalog.Summary `json:"catalog"`
	Sales   salesSummary     `json:"sales"`
	// LastLowStockScan is the product count of the latest scheduled scan, null
	// when no scan ran in the window.
	LastLowStockScan *int64 `json:"lastLowStockScan"`
}

// salesSummary covers the last 24 hours of in-process metrics.
type salesSummary struct {
	OrdersPlaced      int64   `json:"ordersPlaced"`
	OrdersFailed      int64   `json:"ordersFailed"`
	Revenue           float64 `json:"revenue"`
	InsufficientStock int64   `json:"insufficientStock"`
}

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/summary", dashboardSummaryHandler)
	webserver.ApiGET("/health", healthCheck)
}

func healthCheck(c echo.Context) error {
	sqlDB, err := GetDB(c).DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return fail(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Database is not reachable", nil)
	}
	return ok(c, map[string]string{"status": "ok"})
}

func dashboardSummaryHandler(c echo.Context) error {
	appCtx := GetAppContext(c)
	sum, err := appCtx.Catalog().Summary(c.Request().Context(), appCtx.Config().Shop.LowStockThreshold)
	if err != nil {
		return failErr(c, err)
	}
	since := time.Now().Add(-24 * time.Hour)
	var lastScan *int64
	if v, found := metrics.Last(metrics.StockLowProducts, since); found {
		n := int64(v)
		lastScan = &n
	}
	return ok(c, dashboardSummary{
		LastLowStockScan: lastScan,
		Catalog: sum,
		Sales: salesSummary{
			OrdersPlaced:      int64(metrics.Sum(metrics.OrdersPlaced, since)),
			OrdersFailed:      int64(metrics.Sum(metrics.OrdersFailed, since)),
			Revenue:           metrics.Sum(metrics.OrderRevenue, since),
			InsufficientStock: int64(metrics.Sum(metrics.InsufficientStock, since)),
		},
	})
}
