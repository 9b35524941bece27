package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/storefront/config"
	"github.com/jewelcraft/storefront/internal/catalog"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/testutil"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.Shop.LowStockThreshold = 3
	a := NewApplication(&cfg)
	a.OverrideDB(testutil.NewDB(t))
	return a
}

func TestSeedIsIdempotent(t *testing.T) {
	a := newTestApp(t)
	a.checkCategories()
	a.checkProducts()
	a.checkCategories()
	a.checkProducts()

	var categories, products int64
	require.NoError(t, a.DB().Model(&domain.Category{}).Count(&categories).Error)
	require.NoError(t, a.DB().Model(&domain.Product{}).Count(&products).Error)
	assert.Equal(t, int64(4), categories)
	assert.Equal(t, int64(5), products)

	var emerald domain.Product
	require.NoError(t, a.DB().Where("name = ?", "Emerald Studs").First(&emerald).Error)
	assert.False(t, emerald.Availability)
	assert.Equal(t, []string{"emerald", "gold"}, emerald.Tags)
}

func TestScanLowStockPublishes(t *testing.T) {
	a := newTestApp(t)
	a.checkCategories()
	a.checkProducts()

	var got []domain.Product
	require.NoError(t, a.Bus().Subscribe(catalog.TopicStockLow, func(rows []domain.Product) {
		got = rows
	}))

	rows, err := a.ScanLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Freshwater Pearl Necklace", rows[0].Name)
	assert.Equal(t, rows, got)
}

func TestClearFailedOrders(t *testing.T) {
	a := newTestApp(t)
	old := time.Now().Add(-100 * 24 * time.Hour)
	orders := []domain.Order{
		{ID: 1, Reference: "a", Status: domain.OrderPaymentFailed, CreatedAt: old,
			Items: []domain.OrderItem{{ProductID: 1, Quantity: 1}}},
		{ID: 2, Reference: "b", Status: domain.OrderPaymentFailed},
		{ID: 3, Reference: "c", Status: domain.OrderConfirmed, CreatedAt: old},
	}
	require.NoError(t, a.DB().Create(&orders).Error)

	deleted, err := a.clearFailedOrders(time.Now().Add(-staleOrderAge))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var items int64
	require.NoError(t, a.DB().Model(&domain.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestOverrideDBBuildsServices(t *testing.T) {
	a := newTestApp(t)
	assert.NotNil(t, a.Catalog())
	assert.NotNil(t, a.Orders())
	assert.Same(t, a.DB(), a.Catalog().DB())
	require.NoError(t, a.MigrateDB(false))
}

func TestJobsRegistry(t *testing.T) {
	a := newTestApp(t)
	a.initJob()
	defer a.sched.Stop()

	jobs := a.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobClearFailedOrders, jobs[0].Name)
	assert.Equal(t, "@daily", jobs[0].Spec)
	assert.Equal(t, JobLowStock, jobs[1].Name)
	assert.Equal(t, "@every 1h", jobs[1].Spec)
	assert.False(t, jobs[1].Next.IsZero())

	assert.ErrorIs(t, a.RunJobNow("nope"), ErrUnknownJob)
	require.NoError(t, a.RunJobNow(JobLowStock))
	assert.Eventually(t, func() bool {
		return !a.Jobs()[1].Running
	}, time.Second, 10*time.Millisecond)
}
