package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
)

type Dependencies struct {
	Catalog    ProductCatalog
	Stock      StockLookup
	Repository CartRepository
	Notifier   Notifier
	Logger     *slog.Logger
}

// Store holds a single shopper's cart and persists it under key after every
// successful mutation.
//
// Mutations are serialized by sem for their whole read-modify-write,
// remote lookups included. Readers only take mu and never wait on lookups.
type Store struct {
	key      string
	catalog  ProductCatalog
	stock    StockLookup
	repo     CartRepository
	notifier Notifier
	logger   *slog.Logger

	sem  chan struct{}
	mu   sync.RWMutex
	cart domcart.Cart
}

// NewStore builds a Store and loads the cart persisted under key. A missing
// or unparseable snapshot yields an empty cart.
func NewStore(ctx context.Context, key string, deps Dependencies) (*Store, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		key:      key,
		catalog:  deps.Catalog,
		stock:    deps.Stock,
		repo:     deps.Repository,
		notifier: deps.Notifier,
		logger:   logger.With("cart_key", key),
		sem:      make(chan struct{}, 1),
	}

	data, err := s.repo.Load(ctx, key)
	switch {
	case errors.Is(err, domcart.ErrSnapshotNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load cart %q: %w", key, err)
	}

	loaded, err := domcart.Decode(data)
	if err != nil {
		s.logger.Warn("cart_snapshot_discarded", "error", err)
		return s, nil
	}
	s.cart = loaded
	return s, nil
}

func (s *Store) Key() string {
	return s.key
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() domcart.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// AddProduct adds one unit of productID, appending a new line when the
// product is not in the cart yet.
func (s *Store) AddProduct(ctx context.Context, productID int64) (domcart.Cart, error) {
	if err := s.lock(ctx); err != nil {
		return s.fail(ctx, s.Cart(), MsgAddFailed, err)
	}
	defer s.unlock()

	current := s.Cart()
	existing, found := current.Find(productID)

	st, err := s.stock.GetByID(ctx, productID)
	if err != nil {
		return s.fail(ctx, current, MsgAddFailed, unexpected("fetch stock", err))
	}

	if found {
		amount := existing.Amount + 1
		if !st.Allows(amount) {
			return s.fail(ctx, current, MsgOutOfStock, domcart.ErrOutOfStock)
		}
		return s.updateAmount(ctx, current, productID, amount)
	}

	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return s.fail(ctx, current, MsgAddFailed, unexpected("fetch product", err))
	}
	if !st.Allows(1) {
		return s.fail(ctx, current, MsgOutOfStock, domcart.ErrOutOfStock)
	}

	next := current.Append(domcart.Item{Product: *p, Amount: 1})
	return s.commit(ctx, current, next, MsgAddFailed)
}

// RemoveProduct drops productID from the cart.
func (s *Store) RemoveProduct(ctx context.Context, productID int64) (domcart.Cart, error) {
	if err := s.lock(ctx); err != nil {
		return s.fail(ctx, s.Cart(), MsgRemoveFailed, err)
	}
	defer s.unlock()

	current := s.Cart()
	next, err := current.Remove(productID)
	if err != nil {
		return s.fail(ctx, current, MsgRemoveFailed, err)
	}
	return s.commit(ctx, current, next, MsgRemoveFailed)
}

// UpdateProductAmount sets productID's amount. A non-positive amount is
// ignored and the current cart is returned unchanged.
func (s *Store) UpdateProductAmount(ctx context.Context, productID int64, amount int64) (domcart.Cart, error) {
	if err := s.lock(ctx); err != nil {
		return s.fail(ctx, s.Cart(), MsgUpdateFailed, err)
	}
	defer s.unlock()

	return s.updateAmount(ctx, s.Cart(), productID, amount)
}

// updateAmount must be called with the mutation lock held.
func (s *Store) updateAmount(ctx context.Context, current domcart.Cart, productID int64, amount int64) (domcart.Cart, error) {
	if amount <= 0 {
		return current, nil
	}

	st, err := s.stock.GetByID(ctx, productID)
	if err != nil {
		return s.fail(ctx, current, MsgUpdateFailed, unexpected("fetch stock", err))
	}
	if !st.Allows(amount) {
		return s.fail(ctx, current, MsgOutOfStock, domcart.ErrOutOfStock)
	}

	next, err := current.WithAmount(productID, amount)
	if err != nil {
		return s.fail(ctx, current, MsgUpdateFailed, err)
	}
	return s.commit(ctx, current, next, MsgUpdateFailed)
}

// lock waits for the mutation slot or for ctx to end.
func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return unexpected("wait for cart", ctx.Err())
	}
}

func (s *Store) unlock() {
	<-s.sem
}

// idle reports whether no mutation holds the slot.
func (s *Store) idle() bool {
	return len(s.sem) == 0
}

// commit persists next and only then publishes it in memory.
func (s *Store) commit(ctx context.Context, current, next domcart.Cart, failMsg string) (domcart.Cart, error) {
	data, err := domcart.Encode(next)
	if err != nil {
		return s.fail(ctx, current, failMsg, unexpected("encode cart", err))
	}
	if err := s.repo.Save(ctx, s.key, data); err != nil {
		return s.fail(ctx, current, failMsg, unexpected("persist cart", err))
	}

	next.Version = current.Version + 1
	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()

	s.logger.Debug("cart_committed", "version", next.Version, "items", len(next.Items))
	return next.Clone(), nil
}

func (s *Store) fail(ctx context.Context, current domcart.Cart, msg string, err error) (domcart.Cart, error) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg)
	}
	level := slog.LevelInfo
	if domcart.Classify(err) == domcart.OutcomeUnexpected {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "cart_mutation_failed", "notice", msg, "error", err)
	return current, err
}

func unexpected(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domcart.ErrUnexpected, op, err)
}
