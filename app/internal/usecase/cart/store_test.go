package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
	domproduct "example.com/storefront-cart/app/internal/domain/product"
	domstock "example.com/storefront-cart/app/internal/domain/stock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*domproduct.Product
	getErr   error
	calls    int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]*domproduct.Product{
			1: {ID: 1, Title: "Running Shoe", Price: 139.9, Image: "shoe-1.jpg"},
			2: {ID: 2, Title: "Trail Shoe", Price: 179.9, Image: "shoe-2.jpg"},
			3: {ID: 3, Title: "Sandal", Price: 59.9, Image: "sandal.jpg"},
		},
	}
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*domproduct.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.products[id]; ok {
		cloned := *p
		return &cloned, nil
	}
	return nil, domproduct.ErrProductNotFound
}

type fakeStock struct {
	mu      sync.Mutex
	amounts map[int64]int64
	getErr  error
}

func newFakeStock() *fakeStock {
	return &fakeStock{
		amounts: map[int64]int64{1: 5, 2: 1, 3: 0},
	}
}

func (f *fakeStock) GetByID(ctx context.Context, id int64) (*domstock.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	amount, ok := f.amounts[id]
	if !ok {
		return nil, domstock.ErrStockNotFound
	}
	return &domstock.Stock{ID: id, Amount: amount}, nil
}

type memRepository struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	saveErr error
	loadErr error
}

func newMemRepository() *memRepository {
	return &memRepository{data: make(map[string][]byte)}
}

func (m *memRepository) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, domcart.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memRepository) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memRepository) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type storeFixture struct {
	store    *Store
	catalog  *fakeCatalog
	stock    *fakeStock
	repo     *memRepository
	notifier *recordingNotifier
}

const testKey = "@storefront:cart:test"

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{
		catalog:  newFakeCatalog(),
		stock:    newFakeStock(),
		repo:     newMemRepository(),
		notifier: &recordingNotifier{},
	}
	f.store = f.open(t)
	return f
}

func (f *storeFixture) deps() Dependencies {
	return Dependencies{
		Catalog:    f.catalog,
		Stock:      f.stock,
		Repository: f.repo,
		Notifier:   f.notifier,
	}
}

func (f *storeFixture) open(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), testKey, f.deps())
	require.NoError(t, err)
	return s
}

func (f *storeFixture) persisted(t *testing.T) domcart.Cart {
	t.Helper()
	data, err := f.repo.Load(context.Background(), testKey)
	require.NoError(t, err)
	c, err := domcart.Decode(data)
	require.NoError(t, err)
	return c
}

func amounts(c domcart.Cart) [][2]int64 {
	out := make([][2]int64, 0, len(c.Items))
	for _, item := range c.Items {
		out = append(out, [2]int64{item.ID, item.Amount})
	}
	return out
}

func TestAddProduct_NewProductAppendedWithAmountOne(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.AddProduct(ctx, 2)
	require.NoError(t, err)

	c, err := f.store.AddProduct(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, [][2]int64{{2, 1}, {1, 1}}, amounts(c))
	require.Equal(t, "Running Shoe", c.Items[1].Title)
	require.Equal(t, 139.9, c.Items[1].Price)
	require.Equal(t, amounts(c), amounts(f.persisted(t)))
	require.Empty(t, f.notifier.all())
}

func TestAddProduct_WorkedExample(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	c, err := f.store.AddProduct(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, [][2]int64{{1, 1}}, amounts(c))

	c, err = f.store.AddProduct(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, [][2]int64{{1, 2}}, amounts(c))

	c, err = f.store.UpdateProductAmount(ctx, 1, 10)
	require.ErrorIs(t, err, domcart.ErrOutOfStock)
	require.Equal(t, [][2]int64{{1, 2}}, amounts(c))
	require.Equal(t, [][2]int64{{1, 2}}, amounts(f.store.Cart()))
	require.Equal(t, []string{MsgOutOfStock}, f.notifier.all())
}

func TestAddProduct_ExistingProductBeyondStock(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.AddProduct(ctx, 2) // stock = 1
	require.NoError(t, err)
	saves := f.repo.saveCount()

	c, err := f.store.AddProduct(ctx, 2)

	require.ErrorIs(t, err, domcart.ErrOutOfStock)
	require.Equal(t, domcart.OutcomeOutOfStock, domcart.Classify(err))
	require.Equal(t, [][2]int64{{2, 1}}, amounts(c))
	require.Equal(t, saves, f.repo.saveCount())
	require.Equal(t, []string{MsgOutOfStock}, f.notifier.all())
}

func TestAddProduct_NewProductWithoutStock(t *testing.T) {
	f := newStoreFixture(t)

	c, err := f.store.AddProduct(context.Background(), 3) // stock = 0

	require.ErrorIs(t, err, domcart.ErrOutOfStock)
	require.Empty(t, c.Items)
	require.Zero(t, f.repo.saveCount())
	require.Equal(t, []string{MsgOutOfStock}, f.notifier.all())
}

func TestAddProduct_LookupFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *storeFixture)
		id    int64
		cause error
	}{
		{
			name:  "stock lookup fails",
			setup: func(f *storeFixture) { f.stock.getErr = errors.New("connection refused") },
			id:    1,
		},
		{
			name:  "unknown stock",
			setup: func(f *storeFixture) {},
			id:    99,
			cause: domstock.ErrStockNotFound,
		},
		{
			name:  "product lookup fails",
			setup: func(f *storeFixture) { f.catalog.getErr = errors.New("bad gateway") },
			id:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			tt.setup(f)

			c, err := f.store.AddProduct(context.Background(), tt.id)

			require.ErrorIs(t, err, domcart.ErrUnexpected)
			if tt.cause != nil {
				require.ErrorIs(t, err, tt.cause)
			}
			require.Equal(t, domcart.OutcomeUnexpected, domcart.Classify(err))
			require.Empty(t, c.Items)
			require.Zero(t, f.repo.saveCount())
			require.Equal(t, []string{MsgAddFailed}, f.notifier.all())
		})
	}
}

func TestAddProduct_ExistingProductSkipsCatalog(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.AddProduct(ctx, 1)
	require.NoError(t, err)
	_, err = f.store.AddProduct(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, 1, f.catalog.calls)
}

func TestRemoveProduct_KeepsOrderOfRemainingItems(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	f.stock.amounts[3] = 4

	for _, id := range []int64{1, 2, 3} {
		_, err := f.store.AddProduct(ctx, id)
		require.NoError(t, err)
	}

	c, err := f.store.RemoveProduct(ctx, 2)

	require.NoError(t, err)
	require.Equal(t, [][2]int64{{1, 1}, {3, 1}}, amounts(c))
	require.Equal(t, amounts(c), amounts(f.persisted(t)))
}

func TestRemoveProduct_AbsentItemLeavesCartUntouched(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.AddProduct(ctx, 1)
	require.NoError(t, err)
	before, err := f.repo.Load(ctx, testKey)
	require.NoError(t, err)
	saves := f.repo.saveCount()

	c, err := f.store.RemoveProduct(ctx, 42)

	require.ErrorIs(t, err, domcart.ErrItemNotFound)
	require.Equal(t, domcart.OutcomeNotFound, domcart.Classify(err))
	require.Equal(t, [][2]int64{{1, 1}}, amounts(c))
	after, err := f.repo.Load(ctx, testKey)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, saves, f.repo.saveCount())
	require.Equal(t, []string{MsgRemoveFailed}, f.notifier.all())
}

func TestUpdateProductAmount_NonPositiveIsNoop(t *testing.T) {
	for _, amount := range []int64{0, -1, -100} {
		f := newStoreFixture(t)
		ctx := context.Background()

		_, err := f.store.AddProduct(ctx, 1)
		require.NoError(t, err)
		saves := f.repo.saveCount()

		c, err := f.store.UpdateProductAmount(ctx, 1, amount)

		require.NoError(t, err)
		require.Equal(t, [][2]int64{{1, 1}}, amounts(c))
		require.Equal(t, saves, f.repo.saveCount())
		require.Empty(t, f.notifier.all())
	}
}

func TestUpdateProductAmount_WithinStock(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := f.store.AddProduct(ctx, id)
		require.NoError(t, err)
	}

	c, err := f.store.UpdateProductAmount(ctx, 1, 5)

	require.NoError(t, err)
	require.Equal(t, [][2]int64{{1, 5}, {2, 1}}, amounts(c))
	require.Equal(t, amounts(c), amounts(f.persisted(t)))
}

func TestUpdateProductAmount_Failures(t *testing.T) {
	t.Run("stock lookup fails", func(t *testing.T) {
		f := newStoreFixture(t)
		ctx := context.Background()
		_, err := f.store.AddProduct(ctx, 1)
		require.NoError(t, err)
		f.stock.getErr = errors.New("timeout")

		c, err := f.store.UpdateProductAmount(ctx, 1, 2)

		require.ErrorIs(t, err, domcart.ErrUnexpected)
		require.Equal(t, [][2]int64{{1, 1}}, amounts(c))
		require.Equal(t, []string{MsgUpdateFailed}, f.notifier.all())
	})

	t.Run("item not in cart", func(t *testing.T) {
		f := newStoreFixture(t)

		c, err := f.store.UpdateProductAmount(context.Background(), 1, 2)

		require.ErrorIs(t, err, domcart.ErrItemNotFound)
		require.NotErrorIs(t, err, domcart.ErrUnexpected)
		require.Equal(t, domcart.OutcomeNotFound, domcart.Classify(err))
		require.Empty(t, c.Items)
		require.Zero(t, f.repo.saveCount())
		require.Equal(t, []string{MsgUpdateFailed}, f.notifier.all())
	})
}

func TestMutation_PersistFailureKeepsMemory(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.AddProduct(ctx, 1)
	require.NoError(t, err)
	f.repo.saveErr = errors.New("disk full")

	_, err = f.store.AddProduct(ctx, 2)
	require.ErrorIs(t, err, domcart.ErrUnexpected)

	_, err = f.store.RemoveProduct(ctx, 1)
	require.ErrorIs(t, err, domcart.ErrUnexpected)

	require.Equal(t, [][2]int64{{1, 1}}, amounts(f.store.Cart()))
	require.Equal(t, uint64(1), f.store.Cart().Version)
	require.Equal(t, []string{MsgAddFailed, MsgRemoveFailed}, f.notifier.all())
}

func TestMutation_CancelledWhileWaitingForLock(t *testing.T) {
	f := newStoreFixture(t)
	_, err := f.store.AddProduct(context.Background(), 1)
	require.NoError(t, err)

	// Hold the mutation slot as a slow in-flight mutation would.
	f.store.sem <- struct{}{}
	defer f.store.unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := f.store.AddProduct(ctx, 2)
	require.ErrorIs(t, err, domcart.ErrUnexpected)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, [][2]int64{{1, 1}}, amounts(c))

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.store.UpdateProductAmount(ctx, 1, 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, 1, f.repo.saveCount())
	require.Equal(t, []string{MsgAddFailed, MsgUpdateFailed}, f.notifier.all())
	require.False(t, f.store.idle())
}

func TestMutation_FailureLoggedOnce(t *testing.T) {
	f := newStoreFixture(t)
	var buf bytes.Buffer
	deps := f.deps()
	deps.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	s, err := NewStore(context.Background(), testKey, deps)
	require.NoError(t, err)

	_, err = s.AddProduct(context.Background(), 3)
	require.ErrorIs(t, err, domcart.ErrOutOfStock)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "cart_mutation_failed", entry["msg"])
	require.Equal(t, "INFO", entry["level"])
	require.Equal(t, MsgOutOfStock, entry["notice"])
	require.Equal(t, []string{MsgOutOfStock}, f.notifier.all())
}

func TestNewStore_RoundTripsPersistedCart(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	f.stock.amounts[3] = 2

	for _, id := range []int64{3, 1, 2, 1} {
		_, err := f.store.AddProduct(ctx, id)
		require.NoError(t, err)
	}
	want := f.store.Cart()

	reloaded := f.open(t).Cart()

	require.Equal(t, want.Items, reloaded.Items)
	require.Equal(t, [][2]int64{{3, 1}, {1, 2}, {2, 1}}, amounts(reloaded))
}

func TestNewStore_UnparseableSnapshotStartsEmpty(t *testing.T) {
	f := newStoreFixture(t)
	f.repo.data[testKey] = []byte("{not json")

	s := f.open(t)

	require.Empty(t, s.Cart().Items)
}

func TestNewStore_LoadErrorIsReturned(t *testing.T) {
	f := newStoreFixture(t)
	f.repo.loadErr = errors.New("connection reset")

	_, err := NewStore(context.Background(), testKey, f.deps())

	require.Error(t, err)
}

func TestConcurrentAddProduct_NoLostUpdates(t *testing.T) {
	f := newStoreFixture(t)
	const n = 25
	f.stock.amounts[1] = n

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.store.AddProduct(ctx, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	c := f.store.Cart()
	require.Equal(t, [][2]int64{{1, n}}, amounts(c))
	require.Equal(t, uint64(n), c.Version)
	require.Equal(t, amounts(c), amounts(f.persisted(t)))
}

func TestConcurrentMixedMutations_StayWithinStock(t *testing.T) {
	f := newStoreFixture(t)
	f.stock.amounts[1] = 3

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.store.AddProduct(context.Background(), 1)
		}()
	}
	wg.Wait()

	c := f.store.Cart()
	require.Equal(t, [][2]int64{{1, 3}}, amounts(c))
	require.Len(t, f.notifier.all(), 7)
}
