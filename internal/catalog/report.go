package catalog

import (
	"context"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
)

// Summary is the catalog part of the admin dashboard.
type Summary struct {
	Products    int64   `json:"products"`
	Available   int64   `json:"available"`
	OutOfStock  int64   `json:"outOfStock"`
	LowStock    int64   `json:"lowStock"`
	Categories  int64   `json:"categories"`
	PriceMin    float64 `json:"priceMin"`
	PriceMax    float64 `json:"priceMax"`
	PriceMean   float64 `json:"priceMean"`
	PriceMedian float64 `json:"priceMedian"`
}

func (s *Service) Summary(ctx context.Context, lowStockThreshold int) (*Summary, error) {
	db := s.db.WithContext(ctx)
	var sum Summary
	if err := db.Model(&domain.Product{}).Count(&sum.Products).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to count products")
	}
	if err := db.Model(&domain.Product{}).Where("availability = ?", true).Count(&sum.Available).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to count products")
	}
	if err := db.Model(&domain.Product{}).Where("quantity = ?", 0).Count(&sum.OutOfStock).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to count products")
	}
	if err := db.Model(&domain.Product{}).
		Where("quantity <= ? AND availability = ?", lowStockThreshold, true).
		Count(&sum.LowStock).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to count products")
	}
	if err := db.Model(&domain.Category{}).Count(&sum.Categories).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to count categories")
	}

	var prices []float64
	if err := db.Model(&domain.Product{}).Pluck("price", &prices).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query prices")
	}
	if len(prices) > 0 {
		data := stats.Float64Data(prices)
		sum.PriceMin, _ = data.Min()
		sum.PriceMax, _ = data.Max()
		if mean, err := data.Mean(); err == nil {
			sum.PriceMean, _ = stats.Round(mean, 2)
		}
		sum.PriceMedian, _ = data.Median()
	}
	return &sum, nil
}

type productCSVRow struct {
	ID           int64   `csv:"id"`
	Name         string  `csv:"name"`
	Brand        string  `csv:"brand"`
	Size         string  `csv:"size"`
	Category     string  `csv:"category"`
	Price        float64 `csv:"price"`
	Discount     float64 `csv:"discount"`
	PerUnit      string  `csv:"per_unit"`
	Quantity     int     `csv:"quantity"`
	Availability bool    `csv:"availability"`
	Rating       float64 `csv:"rating"`
	Tags         string  `csv:"tags"`
}

// ExportCSV writes the whole catalog, one row per product.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	db := s.db.WithContext(ctx)

	var categories []domain.Category
	if err := db.Find(&categories).Error; err != nil {
		return apperr.Internal(err, "Failed to query categories")
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	var products []domain.Product
	if err := db.Order("id ASC").Find(&products).Error; err != nil {
		return apperr.Internal(err, "Failed to query products")
	}

	rows := make([]*productCSVRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &productCSVRow{
			ID:           p.ID,
			Name:         p.Name,
			Brand:        p.Brand,
			Size:         p.Size,
			Category:     names[p.CategoryID],
			Price:        p.Price,
			Discount:     p.Discount,
			PerUnit:      p.PerUnit,
			Quantity:     p.Quantity,
			Availability: p.Availability,
			Rating:       p.Rating,
			Tags:         strings.Join(p.Tags, "|"),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return apperr.Internal(err, "Failed to write csv")
	}
	return nil
}
