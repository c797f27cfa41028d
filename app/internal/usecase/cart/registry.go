package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrEmptyShopperID = errors.New("shopper id is required")

// Registry owns one Store per shopper, each persisted under its own key
// derived from a shared namespace.
//
// Loads run outside mu so a slow backend only stalls callers for the same
// shopper. Stores unused for longer than the idle TTL are dropped by Evict.
type Registry struct {
	namespace string
	deps      Dependencies
	now       func() time.Time
	loads     singleflight.Group

	mu     sync.Mutex
	stores map[string]*entry
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

func NewRegistry(namespace string, deps Dependencies) *Registry {
	return &Registry{
		namespace: namespace,
		deps:      deps,
		now:       time.Now,
		stores:    make(map[string]*entry),
	}
}

// Key returns the persistence key for a shopper's cart.
func Key(namespace, shopperID string) string {
	return namespace + ":" + shopperID
}

// Store returns the shopper's Store, loading it from persistence on first use.
func (r *Registry) Store(ctx context.Context, shopperID string) (*Store, error) {
	if shopperID == "" {
		return nil, ErrEmptyShopperID
	}
	if s, ok := r.cached(shopperID); ok {
		return s, nil
	}

	// The load is shared by every caller waiting on this shopper, so it
	// must not die with the first caller's request.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.loads.Do(shopperID, func() (any, error) {
		if s, ok := r.cached(shopperID); ok {
			return s, nil
		}
		s, err := NewStore(loadCtx, Key(r.namespace, shopperID), r.deps)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.stores[shopperID] = &entry{store: s, lastUsed: r.now()}
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) cached(shopperID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[shopperID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

// Len reports how many shopper stores are resident.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Evict drops stores that have not been handed out for ttl and have no
// mutation in flight. Their carts stay in persistence and are reloaded on
// next use.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.stores {
		if e.lastUsed.After(cutoff) || !e.store.idle() {
			continue
		}
		delete(r.stores, id)
		evicted++
	}
	return evicted
}

// Run calls Evict every interval until ctx is done. A non-positive
// interval disables eviction.
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		return
	}
	logger := r.deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(ttl); n > 0 {
				logger.Debug("cart_stores_evicted", "count", n, "resident", r.Len())
			}
		}
	}
}
