package app

import (
	"context"
	"os"
	"runtime/debug"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/config"
	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/notify"
	"github.com/jewelcraft/storefront/internal/orders"
	"github.com/jewelcraft/storefront/pkg/metrics"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	jobsMu    sync.Mutex
	jobs      []*namedJob
	bus       EventBus.Bus
	catalog   *catalog.Service
	orders    *orders.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ OrderProvider     = (*Application)(nil)
	_ EventBusProvider  = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, bus: EventBus.New()}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Orders() *orders.Service {
	return a.orders
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// OverrideDB replaces the application's database handle and rebuilds the
// services on top of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.initServices()
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.initServices()
	a.initNotifier()

	if cfg.Shop.SeedDemoData {
		a.checkCategories()
		a.checkProducts()
	}

	a.initJob()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

func (a *Application) initServices() {
	cfg := a.appConfig
	a.catalog = catalog.NewService(a.gormDB, cfg.Shop.MaxImages)

	var gateway orders.PaymentGateway
	if cfg.Payment.Endpoint != "" {
		gateway = orders.NewHTTPGateway(cfg.Payment.Endpoint, cfg.Payment.ReturnURL,
			time.Duration(cfg.Payment.TimeoutSec)*time.Second)
	}
	a.orders = orders.NewService(a.gormDB, gateway, a.bus, cfg.Shop.Currency)
}

func (a *Application) initNotifier() {
	mail := a.appConfig.Mail
	if !mail.Enabled {
		return
	}
	n := notify.NewNotifier(notify.NewSMTPMailer(mail), a.appConfig.System.Appid, mail.AdminTo)
	if err := n.Subscribe(a.bus); err != nil {
		zap.L().Error("notifier subscribe failed", zap.Error(err))
		return
	}
	zap.L().Info("mail notifications enabled", zap.String("host", mail.Host))
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// ScanLowStock lists products at or below the configured threshold, records
// the count as a gauge and publishes them when the list is not empty.
func (a *Application) ScanLowStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := a.catalog.LowStock(ctx, a.appConfig.Shop.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	metrics.SetGauge(metrics.StockLowProducts, int64(len(rows)))
	if len(rows) > 0 {
		a.bus.Publish(catalog.TopicStockLow, rows)
	}
	return rows, nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	a.bus.WaitAsync()
	_ = metrics.Close()
	_ = zap.L().Sync()
}
