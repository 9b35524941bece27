package app

import (
	"context"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/config"
	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/orders"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// CatalogProvider provides the product and category service
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// OrderProvider provides the order intake service
type OrderProvider interface {
	Orders() *orders.Service
}

// EventBusProvider provides the in-process event bus
type EventBusProvider interface {
	Bus() EventBus.Bus
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobStatus
	RunJobNow(name string) error
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	CatalogProvider
	OrderProvider
	EventBusProvider
	SchedulerProvider

	MigrateDB(track bool) error
	DropAll()
	// ScanLowStock runs the low stock check immediately
	ScanLowStock(ctx context.Context) ([]domain.Product, error)
}
