package domain

import (
	"time"

	"github.com/jewelcraft/storefront/pkg/pricing"
	"github.com/shopspring/decimal"
)

// Product is a catalog item. Tags and Images keep their order and are stored
// as json text columns.
type Product struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Name         string    `gorm:"size:255;index" json:"name"`
	Brand        string    `gorm:"size:128" json:"brand"`
	Size         string    `gorm:"size:64" json:"size"`
	Description  string    `gorm:"type:text" json:"description"`
	Tags         []string  `gorm:"type:text;serializer:json" json:"tags"`
	Images       []string  `gorm:"type:text;serializer:json" json:"images"`
	Price        float64   `json:"price"`    // list price in shop currency
	Discount     float64   `json:"discount"` // percentage, 0 means none
	PerUnit      string    `gorm:"size:32" json:"perUnit"`
	Quantity     int       `json:"quantity"`
	Availability bool      `gorm:"index" json:"availability"`
	CategoryID   int64     `gorm:"index" json:"categoryId,string"`
	Rating       float64   `json:"rating"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "shop_product"
}

// EffectivePrice is the unit price after discount.
func (p Product) EffectivePrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(p.Price, p.Discount)
}

// DeriveAvailability returns the availability flag a product may carry for
// the given quantity. An empty stock is never available.
func DeriveAvailability(quantity int, requested bool) bool {
	return requested && quantity > 0
}

// QuantityUpdates is the column set written when a quantity changes. The
// availability flag is cleared in the same statement when stock runs out.
func QuantityUpdates(quantity int) map[string]interface{} {
	updates := map[string]interface{}{
		"quantity":   quantity,
		"updated_at": time.Now(),
	}
	if quantity == 0 {
		updates["availability"] = false
	}
	return updates
}
