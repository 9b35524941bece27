package app

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/domain"
)

// checkCategories initializes the demo categories
func (a *Application) checkCategories() {
	defaultCategories := []domain.Category{
		{Name: "Rings", Subcategory: "Engagement", Status: domain.CategoryActive},
		{Name: "Necklaces", Subcategory: "Pendants", Status: domain.CategoryActive},
		{Name: "Earrings", Subcategory: "Studs", Status: domain.CategoryActive},
		{Name: "Bracelets", Status: domain.CategoryInactive},
	}

	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&count)
		if count == 0 {
			if err := a.gormDB.Create(&c).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", c.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("name", c.Name))
			}
		}
	}
}

// checkProducts initializes demo jewelry products
func (a *Application) checkProducts() {
	defaultProducts := []struct {
		category string
		product  domain.Product
	}{
		{"Rings", domain.Product{Name: "Solitaire Diamond Ring", Brand: "Jewelcraft", Size: "6", Price: 1299, Discount: 10,
			PerUnit: "piece", Quantity: 8, Tags: []string{"diamond", "gold", "engagement"}, Rating: 4.8}},
		{"Rings", domain.Product{Name: "Silver Band", Brand: "Jewelcraft", Size: "8", Price: 89,
			PerUnit: "piece", Quantity: 40, Tags: []string{"silver"}, Rating: 4.2}},
		{"Necklaces", domain.Product{Name: "Freshwater Pearl Necklace", Brand: "Ocean Line", Size: "45cm", Price: 240,
			PerUnit: "piece", Quantity: 3, Tags: []string{"pearl"}, Rating: 4.6}},
		{"Earrings", domain.Product{Name: "Gold Hoop Earrings", Brand: "Jewelcraft", Price: 159, Discount: 20,
			PerUnit: "pair", Quantity: 12, Tags: []string{"gold"}, Rating: 4.4}},
		{"Earrings", domain.Product{Name: "Emerald Studs", Brand: "Verde", Price: 420,
			PerUnit: "pair", Quantity: 0, Tags: []string{"emerald", "gold"}, Rating: 4.9}},
	}

	for _, d := range defaultProducts {
		p := d.product
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("name = ?", p.Name).Count(&count)
		if count > 0 {
			continue
		}
		var c domain.Category
		err := a.gormDB.Where("name = ?", d.category).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("skip default product without category",
				zap.String("name", p.Name), zap.String("category", d.category))
			continue
		} else if err != nil {
			zap.L().Error("failed to query category", zap.Error(err))
			return
		}
		p.CategoryID = c.ID
		p.Availability = domain.DeriveAvailability(p.Quantity, true)
		p.CreatedAt = time.Now()
		p.UpdatedAt = time.Now()
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default product", zap.String("name", p.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default product", zap.String("name", p.Name))
		}
	}
}
