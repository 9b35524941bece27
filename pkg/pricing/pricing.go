// Package pricing holds the money arithmetic shared by the order service and
// the shopper client. All amounts are rounded half-up to cents.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice applies a percentage discount to a list price.
// A discount <= 0 leaves the price untouched.
func EffectiveUnitPrice(price, discount float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if discount <= 0 {
		return p.Round(2)
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discount).Div(hundred))
	return p.Mul(factor).Round(2)
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total.Round(2)
}

// Equal compares two prices at cent precision.
func Equal(a float64, b decimal.Decimal) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(b.Round(2))
}
