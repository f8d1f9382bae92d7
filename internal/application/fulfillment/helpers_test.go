package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/cache"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ============================================================================
// Mocks
// ============================================================================

// MockMarketplaceAPI is a mock implementation of supply.MarketplaceAPI
type MockMarketplaceAPI struct {
	mock.Mock
}

func (m *MockMarketplaceAPI) NewOrders(ctx context.Context, store supply.Store) ([]supply.RawOrder, error) {
	args := m.Called(ctx, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supply.RawOrder), args.Error(1)
}

func (m *MockMarketplaceAPI) OrdersRange(ctx context.Context, store supply.Store, from, to time.Time) ([]supply.RawOrder, error) {
	args := m.Called(ctx, store, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supply.RawOrder), args.Error(1)
}

func (m *MockMarketplaceAPI) Supplies(ctx context.Context, store supply.Store) ([]supply.RemoteSupply, error) {
	args := m.Called(ctx, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supply.RemoteSupply), args.Error(1)
}

func (m *MockMarketplaceAPI) SupplyOrders(ctx context.Context, store supply.Store, supplyID string) ([]supply.RawOrder, error) {
	args := m.Called(ctx, store, supplyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supply.RawOrder), args.Error(1)
}

func (m *MockMarketplaceAPI) CreateSupply(ctx context.Context, store supply.Store, name string, legacy bool) (string, error) {
	args := m.Called(ctx, store, name, legacy)
	return args.String(0), args.Error(1)
}

func (m *MockMarketplaceAPI) AddOrders(ctx context.Context, store supply.Store, supplyID string, orderIDs []int64, legacy bool) error {
	args := m.Called(ctx, store, supplyID, orderIDs, legacy)
	return args.Error(0)
}

func (m *MockMarketplaceAPI) Stickers(ctx context.Context, store supply.Store, orderIDs []int64, spec supply.StickerSpec) ([]supply.Sticker, error) {
	args := m.Called(ctx, store, orderIDs, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supply.Sticker), args.Error(1)
}

// MockCatalogAPI is a mock implementation of product.CatalogAPI
type MockCatalogAPI struct {
	mock.Mock
}

func (m *MockCatalogAPI) ListCards(ctx context.Context, store product.StoreRef, cursor product.Cursor) (product.CardPage, error) {
	args := m.Called(ctx, store, cursor)
	return args.Get(0).(product.CardPage), args.Error(1)
}

func (m *MockCatalogAPI) SearchCards(ctx context.Context, store product.StoreRef, query string, limit int) ([]product.Card, error) {
	args := m.Called(ctx, store, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Card), args.Error(1)
}

func (m *MockCatalogAPI) ListTrash(ctx context.Context, store product.StoreRef, cursor product.Cursor, textSearch string) (product.CardPage, error) {
	args := m.Called(ctx, store, cursor, textSearch)
	return args.Get(0).(product.CardPage), args.Error(1)
}

// ============================================================================
// Fakes
// ============================================================================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type notification struct {
	supplyID string
	force    bool
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *fakeNotifier) NotifySupplyUpdate(supplyID string, force bool) {
	n.mu.Lock()
	n.events = append(n.events, notification{supplyID: supplyID, force: force})
	n.mu.Unlock()
}

func (n *fakeNotifier) forced(supplyID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.supplyID == supplyID && e.force {
			count++
		}
	}
	return count
}

type fakeStatus struct {
	mu       sync.Mutex
	barcodes map[string][]string
	refresh  map[string][]string
	err      error
	calls    []bool
}

func (s *fakeStatus) Lookup(_ context.Context, article string, force bool) (product.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, force)
	if s.err != nil {
		return product.Status{}, s.err
	}
	codes := s.barcodes[article]
	if force && s.refresh != nil {
		codes = s.refresh[article]
	}
	return product.Status{Found: len(codes) > 0, Barcodes: codes}, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads map[string]string
	err     error
}

func (s *fakeStorage) Upload(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.uploads == nil {
		s.uploads = make(map[string]string)
	}
	s.uploads[key] = contentType
	return "https://labels.test/" + key, nil
}

func (s *fakeStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(imageBase64 string) ([]byte, error) {
	return []byte("%PDF-" + imageBase64), nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	labels map[string]int
	scans  map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{labels: map[string]int{}, scans: map[string]int{}}
}

func (r *fakeRecorder) LabelResult(outcome string) {
	r.mu.Lock()
	r.labels[outcome]++
	r.mu.Unlock()
}

func (r *fakeRecorder) ScanResult(step, outcome string) {
	r.mu.Lock()
	r.scans[step+"/"+outcome]++
	r.mu.Unlock()
}

// ============================================================================
// Fixtures
// ============================================================================

var testStore = supply.Store{ID: "store_1", Name: "Основной", Token: "token-1"}

func ptrTo[T any](v T) *T {
	return &v
}

// setupTestDB opens a private in-memory SQLite database with the fulfillment tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.SupplySettingsModel{},
		&models.SupplyAccessUserModel{},
		&models.SupplyOrderModel{},
	))
	return db
}

func rawOrder(id int64, article string, minute int) supply.RawOrder {
	return supply.RawOrder{
		"id":        float64(id),
		"article":   article,
		"createdAt": time.Date(2024, 4, 30, 9, minute, 0, 0, time.UTC).Format(time.RFC3339),
		"skus":      []any{fmt.Sprintf("460%07d", id)},
	}
}

// testEnv wires the services over SQLite, an in-memory cache registry and mocked remotes.
type testEnv struct {
	clock    *testClock
	stores   *supply.Directory
	api      *MockMarketplaceAPI
	catalog  *MockCatalogAPI
	caches   *cache.Registry
	settings *persistence.GormSettingsRepository
	access   *persistence.GormAccessRepository
	orders   *persistence.GormOrderRepository
	notifier *fakeNotifier
	cfg      Config

	resolver *ProductResolver
	sync     *SupplySync
	feed     *OrderFeed
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	clock := newTestClock()
	cfg := DefaultConfig()
	cfg.AddBatchPause = 0

	env := &testEnv{
		clock:   clock,
		stores:  supply.NewDirectory([]supply.Store{testStore, {ID: "store_2", Name: "Второй", Token: "token-2"}}),
		api:     new(MockMarketplaceAPI),
		catalog: new(MockCatalogAPI),
		caches: cache.NewRegistry(config.CacheConfig{
			NewOrdersTTL: time.Minute,
			OrdersTTL:    time.Minute,
			SuppliesTTL:  time.Minute,
			CatalogTTL:   time.Hour,
		}, nil, cache.WithClock(clock.Now)),
		settings: persistence.NewGormSettingsRepository(db),
		access:   persistence.NewGormAccessRepository(db),
		orders:   persistence.NewGormOrderRepository(db),
		notifier: &fakeNotifier{},
		cfg:      cfg,
	}
	env.resolver = NewProductResolver(env.catalog, env.caches, cfg, nil).WithClock(clock.Now)
	env.sync = NewSupplySync(env.stores, env.api, env.settings, env.orders, env.resolver, cfg, nil)
	env.feed = NewOrderFeed(env.stores, env.api, env.caches, env.resolver, env.sync, env.settings, env.access, env.orders, nil)
	env.sync.SetOrderSource(env.feed)

	for _, s := range env.stores.All() {
		env.seedCatalog(t, s.ID)
	}
	return env
}

// seedCatalog makes the store's catalog snapshot fresh so lookups never list the remote catalog.
func (e *testEnv) seedCatalog(t *testing.T, storeID string, cards ...product.Card) {
	t.Helper()
	cards = append(cards, product.Card{VendorCode: "seed", Title: "Seed"})
	err := e.caches.For(storeID).Catalog.Refresh(context.Background(), true, func(context.Context) ([]product.Card, error) {
		return cards, nil
	})
	require.NoError(t, err)
}

// seedSupply stores a synced supply of the test store with the given access mode.
func (e *testEnv) seedSupply(t *testing.T, supplyID string, mode supply.AccessMode, orders ...supply.Order) {
	t.Helper()
	ctx := context.Background()
	_, err := e.settings.Ensure(ctx, supplyID, "Поставка "+supplyID, &testStore)
	require.NoError(t, err)
	require.NoError(t, e.settings.SetAccessMode(ctx, supplyID, mode))
	require.NoError(t, e.orders.Upsert(ctx, supplyID, orders))
}

// openSupplies makes the marketplace list the given supplies as open.
func (e *testEnv) openSupplies(ids ...string) {
	remote := make([]supply.RemoteSupply, 0, len(ids))
	for i, id := range ids {
		remote = append(remote, supply.RemoteSupply{
			ID:        id,
			Name:      "Поставка " + id,
			CreatedAt: time.Date(2024, 4, 30, 8, i, 0, 0, time.UTC),
		})
	}
	e.api.On("Supplies", mock.Anything, testStore).Return(remote, nil)
}

func namedOrder(id int64, minute int, article, name, barcode string) supply.Order {
	return supply.Order{
		ID:          id,
		CreatedAt:   time.Date(2024, 4, 30, 9, minute, 0, 0, time.UTC),
		Article:     article,
		ProductName: name,
		Barcode:     barcode,
		Quantity:    1,
	}
}
