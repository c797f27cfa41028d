package memory

import (
	"context"
	"sync"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
)

// CartRepository keeps snapshots in process memory. Nothing survives a
// restart; it is meant for local runs and tests.
type CartRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewCartRepository() *CartRepository {
	return &CartRepository{data: make(map[string][]byte)}
}

func (r *CartRepository) Load(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.data[key]
	if !ok {
		return nil, domcart.ErrSnapshotNotFound
	}
	return append([]byte(nil), val...), nil
}

func (r *CartRepository) Save(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = append([]byte(nil), data...)
	return nil
}
