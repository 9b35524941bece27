package storefront

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jewelcraft/storefront/pkg/pricing"
)

// Issue explains why a line item cannot be bought as requested.
type Issue struct {
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	AvailableQuantity int    `json:"availableQuantity"`
	CartQuantity      int    `json:"cartQuantity"`
	IsAvailable       bool   `json:"isAvailable"`
	// Err is set when the product could not be fetched at all.
	Err error `json:"-"`
}

func (i Issue) Message() string {
	if i.AvailableQuantity <= 0 {
		return fmt.Sprintf("%s is out of stock", i.label())
	}
	return fmt.Sprintf("%s: only %d available, you requested %d", i.label(), i.AvailableQuantity, i.CartQuantity)
}

func (i Issue) label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ProductID
}

// CheckedItem is a line item decorated with the live catalog record.
type CheckedItem struct {
	Product
	CartQuantity int  `json:"cartQuantity"`
	IsAvailable  bool `json:"isAvailable"`
}

// PricedLine is one order line at the server confirmed price.
type PricedLine struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// CheckoutSession is the result of one validation pass. Quantity edits are
// checked against the product records fetched by that pass only.
type CheckoutSession struct {
	single bool
	items  []CheckedItem
	issues []Issue
}

// Validator reconciles requested line items with the live catalog.
type Validator struct {
	lookup ProductLookup
}

func NewValidator(lookup ProductLookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate fetches every line item in order. A failed fetch becomes an issue
// for that item and the pass continues. Only cancellation of ctx aborts it.
func (v *Validator) Validate(ctx context.Context, items []LineItem) (*CheckoutSession, error) {
	s := &CheckoutSession{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := v.lookup.GetProduct(ctx, item.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			zap.L().Warn("checkout lookup failed", zap.String("product_id", item.ID), zap.Error(err))
			s.issues = append(s.issues, Issue{
				ProductID:    item.ID,
				Name:         item.Name,
				CartQuantity: item.CartQuantity,
				Err:          err,
			})
			continue
		}
		checked := CheckedItem{Product: *p, CartQuantity: item.CartQuantity}
		checked.IsAvailable = isAvailable(checked.Product, item.CartQuantity)
		s.items = append(s.items, checked)
		if !checked.IsAvailable {
			s.issues = append(s.issues, newIssue(checked))
		}
	}
	return s, nil
}

// ValidateSingle validates a "buy now" purchase of one product. Submitting
// such a session leaves the cart untouched.
func (v *Validator) ValidateSingle(ctx context.Context, item LineItem) (*CheckoutSession, error) {
	s, err := v.Validate(ctx, []LineItem{item})
	if err != nil {
		return nil, err
	}
	s.single = true
	return s, nil
}

func isAvailable(p Product, requested int) bool {
	return p.Availability && p.Quantity >= requested
}

func newIssue(item CheckedItem) Issue {
	available := item.Quantity
	if !item.Availability || available < 0 {
		available = 0
	}
	return Issue{
		ProductID:         item.ID,
		Name:              item.Name,
		AvailableQuantity: available,
		CartQuantity:      item.CartQuantity,
	}
}

func (s *CheckoutSession) Single() bool {
	return s.single
}

func (s *CheckoutSession) Issues() []Issue {
	return append([]Issue(nil), s.issues...)
}

func (s *CheckoutSession) Items() []CheckedItem {
	return append([]CheckedItem(nil), s.items...)
}

// CanProceed reports whether the session has items and no open issues.
func (s *CheckoutSession) CanProceed() bool {
	return len(s.issues) == 0 && len(s.items) > 0
}

// UpdateQuantity changes the requested quantity of one item and re-checks it
// against the cached record. A quantity <= 0 removes the item. It reports
// whether the item was part of the session.
func (s *CheckoutSession) UpdateQuantity(id string, qty int) bool {
	if qty <= 0 {
		return s.RemoveItem(id)
	}
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].CartQuantity = qty
		s.items[i].IsAvailable = isAvailable(s.items[i].Product, qty)
		s.dropIssue(id)
		if !s.items[i].IsAvailable {
			s.issues = append(s.issues, newIssue(s.items[i]))
		}
		return true
	}
	for i := range s.issues {
		if s.issues[i].ProductID == id {
			s.issues[i].CartQuantity = qty
			return true
		}
	}
	return false
}

func (s *CheckoutSession) RemoveItem(id string) bool {
	found := s.dropIssue(id)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return found
}

func (s *CheckoutSession) dropIssue(id string) bool {
	for i := range s.issues {
		if s.issues[i].ProductID == id {
			s.issues = append(s.issues[:i], s.issues[i+1:]...)
			return true
		}
	}
	return false
}

// Lines prices every fetched item from the server price and discount.
func (s *CheckoutSession) Lines() []PricedLine {
	lines := make([]PricedLine, 0, len(s.items))
	for _, item := range s.items {
		unit := item.EffectivePrice()
		lines = append(lines, PricedLine{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: unit,
			Quantity:  item.CartQuantity,
			LineTotal: pricing.LineTotal(unit, item.CartQuantity),
		})
	}
	return lines
}

func (s *CheckoutSession) Total() decimal.Decimal {
	lines := s.Lines()
	totals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		totals[i] = l.LineTotal
	}
	return pricing.Sum(totals...)
}
