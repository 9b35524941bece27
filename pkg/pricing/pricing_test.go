package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		discount float64
		want     string
	}{
		{"no discount", 100, 0, "100.00"},
		{"negative discount ignored", 100, -5, "100.00"},
		{"twenty percent", 100, 20, "80.00"},
		{"rounds half up", 19.99, 15, "16.99"},
		{"full discount", 42, 100, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveUnitPrice(tt.price, tt.discount).StringFixed(2))
		})
	}
}

func TestLineTotalAndSum(t *testing.T) {
	unit := EffectiveUnitPrice(100, 20)
	line := LineTotal(unit, 3)
	assert.Equal(t, "240.00", line.StringFixed(2))
	assert.Equal(t, "260.50", Sum(line, decimal.NewFromFloat(20.5)).StringFixed(2))
	assert.True(t, Equal(240, line))
	assert.False(t, Equal(239.99, line))
}
