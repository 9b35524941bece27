package storefront

import (
	"context"
	"sync"
)

// WishlistStore is a set of product snapshots keyed by id, persisted under
// KeyWishlist. Stale entries are kept until the shopper removes them.
type WishlistStore struct {
	mu      sync.Mutex
	items   []Product
	storage Storage
}

func NewWishlistStore(ctx context.Context, storage Storage) (*WishlistStore, error) {
	items, err := loadSnapshot[Product](ctx, storage, KeyWishlist)
	if err != nil {
		return nil, err
	}
	return &WishlistStore{items: items, storage: storage}, nil
}

// Add is a no-op when the product is already on the list.
func (w *WishlistStore) Add(ctx context.Context, p Product) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.index(p.ID) >= 0 {
		return nil
	}
	w.items = append(w.items, p)
	return w.persist(ctx)
}

func (w *WishlistStore) Remove(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.index(id)
	if i < 0 {
		return nil
	}
	w.items = append(w.items[:i], w.items[i+1:]...)
	return w.persist(ctx)
}

func (w *WishlistStore) Clear(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
	return w.persist(ctx)
}

func (w *WishlistStore) IsIn(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index(id) >= 0
}

func (w *WishlistStore) Items() []Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Product(nil), w.items...)
}

func (w *WishlistStore) index(id string) int {
	for i, p := range w.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (w *WishlistStore) persist(ctx context.Context) error {
	items := w.items
	if items == nil {
		items = []Product{}
	}
	return saveSnapshot(ctx, w.storage, KeyWishlist, items)
}
