package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	require.NoError(t, InitMetrics(""))
	defer Close()
	since := time.Now().Add(-time.Minute)

	_, found := Last(StockLowProducts, since)
	assert.False(t, found)

	Incr(OrdersPlaced)
	Incr(OrdersPlaced)
	Add(OrderRevenue, 240.5)
	SetGauge(StockLowProducts, 3)

	assert.Equal(t, 2.0, Sum(OrdersPlaced, since))
	assert.Equal(t, 240.5, Sum(OrderRevenue, since))
	last, found := Last(StockLowProducts, since)
	require.True(t, found)
	assert.Equal(t, 3.0, last)

	assert.Zero(t, Sum(OrdersFailed, since))
}

func TestUninitializedIsNoop(t *testing.T) {
	require.NoError(t, Close())
	Incr(OrdersPlaced)
	assert.Zero(t, Sum(OrdersPlaced, time.Time{}))
	_, found := Last(StockLowProducts, time.Time{})
	assert.False(t, found)
}
