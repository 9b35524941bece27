package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// likeEscaper neutralizes LIKE wildcards; patterns use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ProductInput is the full field set accepted when creating a product.
type ProductInput struct {
	Name         string   `json:"name" validate:"required,min=1,max=255"`
	Brand        string   `json:"brand" validate:"omitempty,max=128"`
	Size         string   `json:"size" validate:"omitempty,max=64"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags" validate:"omitempty,dive,min=1,max=64"`
	Images       []string `json:"images" validate:"omitempty,dive,url"`
	Price        float64  `json:"price" validate:"gte=0"`
	Discount     float64  `json:"discount" validate:"gte=0,lte=100"`
	PerUnit      string   `json:"perUnit" validate:"omitempty,max=32"`
	Quantity     int      `json:"quantity" validate:"gte=0"`
	Availability *bool    `json:"availability"`
	CategoryID   int64    `json:"categoryId,string" validate:"required,gt=0"`
	Rating       float64  `json:"rating" validate:"gte=0,lte=5"`
}

// ProductUpdate carries only the fields that change.
type ProductUpdate struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=255"`
	Brand        *string   `json:"brand" validate:"omitempty,max=128"`
	Size         *string   `json:"size" validate:"omitempty,max=64"`
	Description  *string   `json:"description"`
	Tags         *[]string `json:"tags"`
	Images       *[]string `json:"images"`
	Price        *float64  `json:"price"`
	Discount     *float64  `json:"discount"`
	PerUnit      *string   `json:"perUnit" validate:"omitempty,max=32"`
	Quantity     *int      `json:"quantity"`
	Availability *bool     `json:"availability"`
	CategoryID   *int64    `json:"categoryId,string"`
	Rating       *float64  `json:"rating"`
}

// ProductFilter narrows a product listing. Nil pointers mean "any".
type ProductFilter struct {
	Page         int
	Limit        int
	CategoryID   *int64
	Availability *bool
	MinPrice     *float64
	MaxPrice     *float64
	Tags         []string
	Search       string
	Sort         string
	Order        string
}

type ProductPage struct {
	Items      []domain.Product
	Pagination domain.Pagination
}

var productSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"quantity":   "quantity",
	"rating":     "rating",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	} else if err != nil {
		return nil, apperr.Internal(err, "Failed to query product")
	}
	return &p, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("INVALID_REQUEST", "Name is required")
	}
	if err := s.checkProductValues(in.Price, in.Discount, in.Quantity, in.Rating, in.Images); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	available := true
	if in.Availability != nil {
		available = *in.Availability
	}
	now := time.Now()
	p := domain.Product{
		Name:         in.Name,
		Brand:        strings.TrimSpace(in.Brand),
		Size:         strings.TrimSpace(in.Size),
		Description:  in.Description,
		Tags:         cleanList(in.Tags),
		Images:       cleanList(in.Images),
		Price:        in.Price,
		Discount:     in.Discount,
		PerUnit:      strings.TrimSpace(in.PerUnit),
		Quantity:     in.Quantity,
		Availability: domain.DeriveAvailability(in.Quantity, available),
		CategoryID:   in.CategoryID,
		Rating:       in.Rating,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to create product")
	}
	metrics.Incr(metrics.CatalogWrites)
	zap.L().Info("product created", zap.Int64("id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductUpdate) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("INVALID_REQUEST", "Name is required")
		}
		p.Name = name
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Size != nil {
		p.Size = strings.TrimSpace(*in.Size)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Tags != nil {
		p.Tags = cleanList(*in.Tags)
	}
	if in.Images != nil {
		p.Images = cleanList(*in.Images)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.PerUnit != nil {
		p.PerUnit = strings.TrimSpace(*in.PerUnit)
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if err := s.checkProductValues(p.Price, p.Discount, p.Quantity, p.Rating, p.Images); err != nil {
		return nil, err
	}
	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = *in.CategoryID
	}

	requested := p.Availability
	if in.Availability != nil {
		requested = *in.Availability
	}
	p.Availability = domain.DeriveAvailability(p.Quantity, requested)
	p.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to update product")
	}
	metrics.Incr(metrics.CatalogWrites)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return apperr.Internal(res.Error, "Failed to delete product")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	}
	metrics.Incr(metrics.CatalogWrites)
	zap.L().Info("product deleted", zap.Int64("id", id))
	return nil
}

// ListProducts applies the filter and returns one page ordered by the
// whitelisted sort column.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return nil, apperr.Validation("INVALID_FILTER", "minPrice must be >= 0")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return nil, apperr.Validation("INVALID_FILTER", "maxPrice must be >= 0")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, apperr.Validation("INVALID_FILTER", "minPrice must not exceed maxPrice")
	}

	query := s.db.WithContext(ctx).Model(&domain.Product{})
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.Availability != nil {
		query = query.Where("availability = ?", *f.Availability)
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if tags := cleanList(f.Tags); len(tags) > 0 {
		clauses := make([]string, 0, len(tags))
		args := make([]interface{}, 0, len(tags))
		for _, tag := range tags {
			// tags are stored as a json array, match the quoted element
			quoted, _ := json.Marshal(tag)
			clauses = append(clauses, `tags LIKE ? ESCAPE '\'`)
			args = append(args, containsPattern(string(quoted)))
		}
		query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		if strings.EqualFold(s.db.Name(), "postgres") {
			like := containsPattern(q)
			query = query.Where(`name ILIKE ? ESCAPE '\' OR brand ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\'`, like, like, like)
		} else {
			like := containsPattern(strings.ToLower(q))
			query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like, like)
		}
	}

	sortCol, ok := productSortColumns[strings.TrimSpace(f.Sort)]
	if !ok {
		sortCol = "id"
	}
	order := strings.ToUpper(strings.TrimSpace(f.Order))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	base := query.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query products")
	}

	pg := domain.NewPagination(f.Page, f.Limit, total)
	rows := make([]domain.Product, 0, pg.Limit)
	if err := base.Order(sortCol + " " + order).Offset(pg.Offset()).Limit(pg.Limit).Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query products")
	}
	return &ProductPage{Items: rows, Pagination: pg}, nil
}

// BulkUpdateAvailability sets the flag on all given products and returns the
// number of rows changed. Products without stock are never marked available.
func (s *Service) BulkUpdateAvailability(ctx context.Context, ids []int64, available bool) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("INVALID_REQUEST", "At least one product id is required")
	}
	query := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id IN ?", ids)
	if available {
		query = query.Where("quantity > ?", 0)
	}
	res := query.Updates(map[string]interface{}{
		"availability": available,
		"updated_at":   time.Now(),
	})
	if res.Error != nil {
		return 0, apperr.Internal(res.Error, "Failed to update availability")
	}
	metrics.Incr(metrics.CatalogWrites)
	zap.L().Info("bulk availability update",
		zap.Int("requested", len(ids)),
		zap.Int64("updated", res.RowsAffected),
		zap.Bool("available", available))
	return res.RowsAffected, nil
}

// UpdateQuantity writes the new quantity and, when it reaches zero, clears
// availability in the same UPDATE statement.
func (s *Service) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	if quantity < 0 {
		return nil, apperr.Validation("INVALID_QUANTITY", "Quantity must be >= 0")
	}
	res := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(domain.QuantityUpdates(quantity))
	if res.Error != nil {
		return nil, apperr.Internal(res.Error, "Failed to update quantity")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	}
	metrics.Incr(metrics.CatalogWrites)
	return s.GetProduct(ctx, id)
}

// LowStock lists available products whose quantity is at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold < 0 {
		return nil, apperr.Validation("INVALID_THRESHOLD", "Threshold must be >= 0")
	}
	var rows []domain.Product
	err := s.db.WithContext(ctx).
		Where("quantity <= ? AND availability = ?", threshold, true).
		Order("quantity ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err, "Failed to query low stock products")
	}
	return rows, nil
}

func (s *Service) checkProductValues(price, discount float64, quantity int, rating float64, images []string) error {
	if price < 0 {
		return apperr.Validation("INVALID_PRICE", "Price must be >= 0")
	}
	if quantity < 0 {
		return apperr.Validation("INVALID_QUANTITY", "Quantity must be >= 0")
	}
	if discount < 0 || discount > 100 {
		return apperr.Validation("INVALID_DISCOUNT", "Discount must be between 0 and 100")
	}
	if rating < 0 || rating > 5 {
		return apperr.Validation("INVALID_RATING", "Rating must be between 0 and 5")
	}
	if len(images) > s.maxImages {
		return apperr.Validation("TOO_MANY_IMAGES", "Too many images").
			WithDetails(map[string]interface{}{"max": s.maxImages, "got": len(images)})
	}
	return nil
}

func (s *Service) ensureCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Validation("INVALID_CATEGORY", "Category is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Internal(err, "Failed to query category")
	}
	if count == 0 {
		return apperr.NotFound("CATEGORY_NOT_FOUND", "Category not found")
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
