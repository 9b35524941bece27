// Package catalog implements product and category management on top of gorm.
// Every method returns *apperr.Error values so callers can tell invalid input
// from missing records and from persistence failures.
package catalog

import "gorm.io/gorm"

const defaultMaxImages = 4

// TopicStockLow is published with a []domain.Product when a stock scan finds
// products at or below the low stock threshold.
const TopicStockLow = "stock:low"

type Service struct {
	db        *gorm.DB
	maxImages int
}

func NewService(db *gorm.DB, maxImages int) *Service {
	if maxImages <= 0 {
		maxImages = defaultMaxImages
	}
	return &Service{db: db, maxImages: maxImages}
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
