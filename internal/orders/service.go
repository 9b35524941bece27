// Package orders turns a validated checkout into a persisted order. Stock is
// reserved with a conditional decrement so two shoppers can never both buy
// the last unit.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/pkg/common"
	"github.com/jewelcraft/storefront/pkg/metrics"
	"github.com/jewelcraft/storefront/pkg/pricing"
)

// TopicOrderPlaced is published with a domain.Order after a successful placement.
const TopicOrderPlaced = "order:placed"

type ItemRequest struct {
	ProductID int64   `json:"productId,string" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
}

type PlaceRequest struct {
	CustomerName  string        `json:"customerName" validate:"required,min=1,max=255"`
	CustomerEmail string        `json:"customerEmail" validate:"required,email,max=255"`
	CustomerPhone string        `json:"customerPhone" validate:"required,min=6,max=32"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PaymentGateway is the external payment collaborator. It returns the URL the
// shopper is redirected to.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, order *domain.Order) (string, error)
}

type OrderFilter struct {
	Page   int
	Limit  int
	Status string
	Email  string
}

type OrderPage struct {
	Items      []domain.Order
	Pagination domain.Pagination
}

type Service struct {
	db       *gorm.DB
	gateway  PaymentGateway
	bus      EventBus.Bus
	currency string
}

// NewService builds the order service. A nil gateway confirms orders
// immediately, a nil bus disables event publishing.
func NewService(db *gorm.DB, gateway PaymentGateway, bus EventBus.Bus, defaultCurrency string) *Service {
	return &Service{db: db, gateway: gateway, bus: bus, currency: defaultCurrency}
}

type reservation struct {
	productID int64
	quantity  int
	soldOut   bool
}

// Place reprices every line from the catalog, reserves stock and stores the
// order. The price sent by the client is advisory only.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*domain.Order, error) {
	if err := checkCustomer(req); err != nil {
		return nil, err
	}
	unit, err := s.parseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:            common.UUIDint64(),
		Reference:     common.UUID(),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Currency:      unit.String(),
		Status:        domain.OrderConfirmed,
	}
	if s.gateway != nil {
		order.Status = domain.OrderPending
	}

	var reserved []reservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserved = reserved[:0]
		total := decimal.Zero
		order.Items = order.Items[:0]
		now := time.Now()
		for _, item := range items {
			var p domain.Product
			if err := tx.Where("id = ?", item.ProductID).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("PRODUCT_NOT_FOUND", "Product not found").
					WithDetails(map[string]interface{}{"productId": fmt.Sprint(item.ProductID)})
			} else if err != nil {
				return apperr.Internal(err, "Failed to query product")
			}

			price := p.EffectivePrice()
			if item.Price > 0 && !pricing.Equal(item.Price, price) {
				zap.L().Warn("client price differs from catalog price",
					zap.Int64("product_id", p.ID),
					zap.Float64("client_price", item.Price),
					zap.String("catalog_price", price.StringFixed(2)))
			}

			res := tx.Model(&domain.Product{}).
				Where("id = ? AND quantity >= ? AND availability = ?", p.ID, item.Quantity, true).
				Updates(map[string]interface{}{
					"quantity":     gorm.Expr("quantity - ?", item.Quantity),
					"availability": gorm.Expr("CASE WHEN quantity - ? <= 0 THEN ? ELSE availability END", item.Quantity, false),
					"updated_at":   now,
				})
			if res.Error != nil {
				return apperr.Internal(res.Error, "Failed to reserve stock")
			}
			if res.RowsAffected == 0 {
				metrics.Incr(metrics.InsufficientStock)
				available := p.Quantity
				if !p.Availability {
					available = 0
				}
				return apperr.Conflict("INSUFFICIENT_STOCK",
					fmt.Sprintf("Only %d of %s available, requested %d", available, p.Name, item.Quantity)).
					WithDetails(map[string]interface{}{
						"productId":         fmt.Sprint(p.ID),
						"availableQuantity": available,
						"requestedQuantity": item.Quantity,
					})
			}
			// p was read before the row lock, take the remaining stock from the row itself
			var left int
			if err := tx.Model(&domain.Product{}).Select("quantity").
				Where("id = ?", p.ID).Scan(&left).Error; err != nil {
				return apperr.Internal(err, "Failed to reserve stock")
			}
			reserved = append(reserved, reservation{
				productID: p.ID,
				quantity:  item.Quantity,
				soldOut:   left <= 0,
			})

			total = total.Add(pricing.LineTotal(price, item.Quantity))
			order.Items = append(order.Items, domain.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Price:       price.InexactFloat64(),
				Quantity:    item.Quantity,
			})
		}
		order.Total = total.Round(2).InexactFloat64()
		if err := tx.Create(&order).Error; err != nil {
			return apperr.Internal(err, "Failed to create order")
		}
		return nil
	})
	if err != nil {
		return nil, apperr.As(err)
	}

	if s.gateway != nil {
		url, err := s.gateway.CreatePayment(ctx, &order)
		if err != nil {
			s.failPayment(ctx, &order, reserved, err)
			return nil, apperr.Internal(err, "Payment could not be started")
		}
		order.PaymentURL = url
		if err := s.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("payment_url", url).Error; err != nil {
			zap.L().Error("failed to store payment url", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	metrics.Incr(metrics.OrdersPlaced)
	metrics.Add(metrics.OrderRevenue, order.Total)
	zap.L().Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.String("status", order.Status),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Total))
	if s.bus != nil {
		s.bus.Publish(TopicOrderPlaced, order)
	}
	return &order, nil
}

// failPayment marks the order and returns the reserved units to stock.
func (s *Service) failPayment(ctx context.Context, order *domain.Order, reserved []reservation, cause error) {
	metrics.Incr(metrics.OrdersFailed)
	zap.L().Error("payment gateway failed",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Error(cause))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range reserved {
			updates := map[string]interface{}{
				"quantity":   gorm.Expr("quantity + ?", r.quantity),
				"updated_at": time.Now(),
			}
			if r.soldOut {
				updates["availability"] = gorm.Expr("CASE WHEN quantity + ? > 0 THEN ? ELSE availability END", r.quantity, true)
			}
			if err := tx.Model(&domain.Product{}).Where("id = ?", r.productID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("status", domain.OrderPaymentFailed).Error
	})
	if err != nil {
		zap.L().Error("failed to release reserved stock", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	order.Status = domain.OrderPaymentFailed
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("ORDER_NOT_FOUND", "Order not found")
	} else if err != nil {
		return nil, apperr.Internal(err, "Failed to query order")
	}
	return &o, nil
}

func (s *Service) List(ctx context.Context, f OrderFilter) (*OrderPage, error) {
	query := s.db.WithContext(ctx).Model(&domain.Order{})
	if status := strings.TrimSpace(f.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if email := strings.TrimSpace(f.Email); email != "" {
		query = query.Where("customer_email = ?", strings.ToLower(email))
	}

	base := query.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query orders")
	}
	pg := domain.NewPagination(f.Page, f.Limit, total)
	rows := make([]domain.Order, 0, pg.Limit)
	if err := base.Preload("Items").Order("created_at DESC, id DESC").Offset(pg.Offset()).Limit(pg.Limit).Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to query orders")
	}
	return &OrderPage{Items: rows, Pagination: pg}, nil
}

func (s *Service) parseCurrency(code string) (currency.Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = s.currency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, apperr.Validation("INVALID_CURRENCY", "Currency must be an ISO 4217 code")
	}
	return unit, nil
}

func checkCustomer(req PlaceRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return apperr.Validation("INVALID_REQUEST", "Customer name is required")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return apperr.Validation("INVALID_REQUEST", "Customer email is required")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return apperr.Validation("INVALID_REQUEST", "Customer phone is required")
	}
	return nil
}

// mergeItems folds repeated product ids into one line, keeping first-seen order.
func mergeItems(in []ItemRequest) ([]ItemRequest, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("EMPTY_ORDER", "Order must contain at least one item")
	}
	index := make(map[int64]int, len(in))
	out := make([]ItemRequest, 0, len(in))
	for _, item := range in {
		if item.ProductID <= 0 {
			return nil, apperr.Validation("INVALID_PRODUCT", "Product id is required")
		}
		if item.Quantity <= 0 {
			return nil, apperr.Validation("INVALID_QUANTITY", "Quantity must be > 0").
				WithDetails(map[string]interface{}{"productId": fmt.Sprint(item.ProductID)})
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out, nil
}
