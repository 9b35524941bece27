// Package storefront is the shopper side of the jewelry store: a cart and a
// wishlist kept in client-local storage, checkout validation against the live
// catalog and order submission.
package storefront

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jewelcraft/storefront/pkg/pricing"
)

// LineItem is a product snapshot plus the quantity the shopper wants.
type LineItem struct {
	Product
	CartQuantity int `json:"cartQuantity"`
}

// CartStore owns the shopper's cart. Every mutation writes the full snapshot
// back to storage under KeyCart.
type CartStore struct {
	mu      sync.Mutex
	items   []LineItem
	storage Storage
	lookup  ProductLookup
}

// NewCartStore loads the persisted cart and drops line items whose product
// no longer exists in the catalog.
func NewCartStore(ctx context.Context, storage Storage, lookup ProductLookup) (*CartStore, error) {
	items, err := loadSnapshot[LineItem](ctx, storage, KeyCart)
	if err != nil {
		return nil, err
	}
	c := &CartStore{items: items, storage: storage, lookup: lookup}
	if _, err := c.Reconcile(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconcile removes line items whose product id resolves to ErrNotFound and
// returns the removed ids. Lookup failures of any other kind keep the item.
func (c *CartStore) Reconcile(ctx context.Context) ([]string, error) {
	if c.lookup == nil {
		return nil, nil
	}
	c.mu.Lock()
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.ID
	}
	c.mu.Unlock()

	gone := make(map[string]bool)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := c.lookup.GetProduct(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			gone[id] = true
		case err != nil:
			zap.L().Debug("cart reconcile lookup failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	if len(gone) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := make([]string, 0, len(gone))
	kept := c.items[:0]
	for _, item := range c.items {
		if gone[item.ID] {
			zap.L().Warn("dropping cart item no longer in catalog",
				zap.String("product_id", item.ID),
				zap.String("name", item.Name))
			removed = append(removed, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	return removed, c.persist(ctx)
}

// Add puts qty units of p in the cart. A quantity below one counts as one.
func (c *CartStore) Add(ctx context.Context, p Product, qty int) error {
	if qty < 1 {
		qty = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(p.ID); i >= 0 {
		c.items[i].CartQuantity += qty
	} else {
		c.items = append(c.items, LineItem{Product: p, CartQuantity: qty})
	}
	return c.persist(ctx)
}

func (c *CartStore) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return c.persist(ctx)
}

// UpdateQuantity sets the quantity of a line item, removing it when qty <= 0.
func (c *CartStore) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return c.Remove(ctx, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return nil
	}
	c.items[i].CartQuantity = qty
	return c.persist(ctx)
}

func (c *CartStore) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.persist(ctx)
}

// Items returns a copy of the line items in insertion order.
func (c *CartStore) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...)
}

func (c *CartStore) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.items {
		total += item.CartQuantity
	}
	return total
}

// TotalPrice sums list price times quantity. Discounts are applied at
// checkout, not here.
func (c *CartStore) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]decimal.Decimal, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, pricing.LineTotal(decimal.NewFromFloat(item.Price), item.CartQuantity))
	}
	return pricing.Sum(lines...)
}

func (c *CartStore) index(id string) int {
	for i, item := range c.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with mu held.
func (c *CartStore) persist(ctx context.Context) error {
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	return saveSnapshot(ctx, c.storage, KeyCart, items)
}
