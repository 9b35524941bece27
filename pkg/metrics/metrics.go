package metrics

import (
	"errors"
	"math"
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

const (
	OrdersPlaced      = "storefront_orders_placed"
	OrdersFailed      = "storefront_orders_failed"
	OrderRevenue      = "storefront_order_revenue"
	StockLowProducts  = "storefront_stock_low_products"
	CatalogWrites     = "storefront_catalog_writes"
	InsufficientStock = "storefront_insufficient_stock"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage
)

// InitMetrics opens the time series storage under <workdir>/data/metrics.
// An empty workdir keeps the points in memory only.
func InitMetrics(workdir string) error {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7 * 24 * time.Hour),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(path.Join(workdir, "data", "metrics")))
	}
	s, err := tstorage.NewStorage(opts...)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

func insert(name string, value float64) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return
	}
	err := s.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}

// Incr records a counter increment of one.
func Incr(name string) {
	insert(name, 1)
}

// Add records a counter increment of delta.
func Add(name string, delta float64) {
	insert(name, delta)
}

// SetGauge records the current value of a gauge.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// Sum adds all points of a counter recorded since the given time.
func Sum(name string, since time.Time) float64 {
	points := selectPoints(name, since)
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

// Last returns the latest gauge value recorded since the given time.
func Last(name string, since time.Time) (float64, bool) {
	points := selectPoints(name, since)
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Value, true
}

func selectPoints(name string, since time.Time) []*tstorage.DataPoint {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return nil
	}
	points, err := s.Select(name, nil, since.Unix(), math.MaxInt64)
	if err != nil {
		if !errors.Is(err, tstorage.ErrNoDataPoints) {
			zap.L().Warn("metrics select failed", zap.String("metric", name), zap.Error(err))
		}
		return nil
	}
	return points
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
