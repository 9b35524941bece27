package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Subcategory string `json:"subcategory" validate:"omitempty,max=255"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive terminated"`
	Image       string `json:"image" validate:"omitempty,url"`
}

type CategoryUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Subcategory *string `json:"subcategory" validate:"omitempty,max=255"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive terminated"`
	Image       *string `json:"image"`
}

type CategoryFilter struct {
	Page   int
	Limit  int
	Search string
	Status string
}

type CategoryPage struct {
	Items      []domain.Category
	Pagination domain.Pagination
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("CATEGORY_NOT_FOUND", "Category not found")
	} else if err != nil {
		return nil, apperr.Internal(err, "Failed to query category")
	}
	return &c, nil
}

func (s *Service) ListCategories(ctx context.Context, f CategoryFilter) (*CategoryPage, error) {
	query := s.db.WithContext(ctx).Model(&domain.Category{})
	if q := strings.TrimSpace(f.Search); q != "" {
		if strings.EqualFold(s.db.Name(), "postgres") {
			query = query.Where("name ILIKE ? OR subcategory ILIKE ?", "%"+q+"%", "%"+q+"%")
		} else {
			like := "%" + strings.ToLower(q) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(subcategory) LIKE ?", like, like)
		}
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	base := query.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query categories")
	}
	pg := domain.NewPagination(f.Page, f.Limit, total)
	rows := make([]domain.Category, 0, pg.Limit)
	if err := base.Order("name ASC").Offset(pg.Offset()).Limit(pg.Limit).Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query categories")
	}
	return &CategoryPage{Items: rows, Pagination: pg}, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("INVALID_REQUEST", "Name is required")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = domain.CategoryActive
	}
	if !domain.ValidCategoryStatus(status) {
		return nil, apperr.Validation("INVALID_STATUS", "Status must be active, inactive or terminated")
	}
	if err := s.ensureCategoryNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	now := time.Now()
	c := domain.Category{
		Name:        name,
		Subcategory: strings.TrimSpace(in.Subcategory),
		Status:      status,
		Image:       strings.TrimSpace(in.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to create category")
	}
	zap.L().Info("category created", zap.Int64("id", c.ID), zap.String("name", c.Name))
	return &c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryUpdate) (*domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("INVALID_REQUEST", "Name is required")
		}
		if name != c.Name {
			if err := s.ensureCategoryNameFree(ctx, name, id); err != nil {
				return nil, err
			}
			c.Name = name
		}
	}
	if in.Subcategory != nil {
		c.Subcategory = strings.TrimSpace(*in.Subcategory)
	}
	if in.Status != nil {
		if !domain.ValidCategoryStatus(*in.Status) {
			return nil, apperr.Validation("INVALID_STATUS", "Status must be active, inactive or terminated")
		}
		c.Status = *in.Status
	}
	if in.Image != nil {
		c.Image = strings.TrimSpace(*in.Image)
	}
	c.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to update category")
	}
	return c, nil
}

// DeleteCategory refuses to remove a category that products still reference.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	var productCount int64
	if err := s.db.WithContext(ctx).Model(&domain.Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		return apperr.Internal(err, "Failed to query category products")
	}
	if productCount > 0 {
		return apperr.Conflict("CATEGORY_IN_USE", "Category is in use by products and cannot be deleted").
			WithDetails(map[string]interface{}{"product_count": productCount})
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Category{}).Error; err != nil {
		return apperr.Internal(err, "Failed to delete category")
	}
	zap.L().Info("category deleted", zap.Int64("id", id))
	return nil
}

func (s *Service) ensureCategoryNameFree(ctx context.Context, name string, exceptID int64) error {
	var exists int64
	query := s.db.WithContext(ctx).Model(&domain.Category{}).Where("name = ?", name)
	if exceptID > 0 {
		query = query.Where("id != ?", exceptID)
	}
	if err := query.Count(&exists).Error; err != nil {
		return apperr.Internal(err, "Failed to query categories")
	}
	if exists > 0 {
		return apperr.Conflict("CATEGORY_EXISTS", "Category name already exists")
	}
	return nil
}
