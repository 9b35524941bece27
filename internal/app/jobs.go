package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jewelcraft/storefront/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// staleOrderAge is how long payment_failed orders are kept.
const staleOrderAge = 90 * 24 * time.Hour

// Job names
const (
	JobLowStock          = "low_stock_scan"
	JobClearFailedOrders = "clear_failed_orders"
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	spec := a.appConfig.Shop.LowStockCron
	if spec == "" {
		spec = "@every 1h"
	}
	if err := a.addJob(JobLowStock, spec, a.SchedLowStockTask); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
	if err := a.addJob(JobClearFailedOrders, "@daily", a.SchedClearFailedOrders); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedLowStockTask low stock scan
func (a *Application) SchedLowStockTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rows, err := a.ScanLowStock(ctx)
	if err != nil {
		zap.L().Error("low stock scan failed", zap.Error(err))
		return
	}
	if len(rows) > 0 {
		zap.L().Warn("products running low",
			zap.Int("count", len(rows)),
			zap.Int("threshold", a.appConfig.Shop.LowStockThreshold))
	}
}

// SchedClearFailedOrders removes orders whose payment never started.
func (a *Application) SchedClearFailedOrders() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	deleted, err := a.clearFailedOrders(time.Now().Add(-staleOrderAge))
	if err != nil {
		zap.L().Error("clear failed orders", zap.Error(err))
		return
	}
	if deleted > 0 {
		zap.L().Info("cleared failed orders", zap.Int64("count", deleted))
	}
}

func (a *Application) clearFailedOrders(before time.Time) (int64, error) {
	sub := a.gormDB.Model(&domain.Order{}).Select("id").
		Where("status = ? AND created_at < ?", domain.OrderPaymentFailed, before)
	if err := a.gormDB.Where("order_id IN (?)", sub).Delete(&domain.OrderItem{}).Error; err != nil {
		return 0, err
	}
	res := a.gormDB.Where("status = ? AND created_at < ?", domain.OrderPaymentFailed, before).
		Delete(&domain.Order{})
	return res.RowsAffected, res.Error
}
