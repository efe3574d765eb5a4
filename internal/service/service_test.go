package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sales-ledger/internal/models"
	"sales-ledger/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

func kg(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// flakyStore wraps the memory store and fails chosen calls
type flakyStore struct {
	*store.Memory
	failUpsert    bool
	failSnapshots bool
	failDelete    bool
	failItems     bool
	// uuidKeys rejects malformed ids the way a uuid column does
	uuidKeys bool
}

var errBoom = errors.New("connection reset by peer")

func (f *flakyStore) badKey(id string) error {
	if _, err := uuid.Parse(id); f.uuidKeys && err != nil {
		return fmt.Errorf("pq: invalid input syntax for type uuid: %q", id)
	}
	return nil
}

func (f *flakyStore) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	if f.failItems {
		return errBoom
	}
	return f.Memory.CreateSaleItems(ctx, items)
}

func (f *flakyStore) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	if err := f.badKey(id); err != nil {
		return nil, err
	}
	return f.Memory.GetSaleByID(ctx, id)
}

func (f *flakyStore) GetSaleDetail(ctx context.Context, id string) (*models.SaleDetail, error) {
	if err := f.badKey(id); err != nil {
		return nil, err
	}
	return f.Memory.GetSaleDetail(ctx, id)
}

func (f *flakyStore) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	if err := f.badKey(id); err != nil {
		return nil, err
	}
	return f.Memory.GetInventoryItem(ctx, id)
}

func (f *flakyStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if err := f.badKey(id); err != nil {
		return nil, err
	}
	return f.Memory.GetCustomer(ctx, id)
}

func (f *flakyStore) UpsertStockSnapshots(ctx context.Context, snaps []models.StockSnapshot) error {
	if f.failUpsert {
		return errBoom
	}
	return f.Memory.UpsertStockSnapshots(ctx, snaps)
}

func (f *flakyStore) GetStockSnapshots(ctx context.Context, ownerID string, ids []string) ([]models.StockSnapshot, error) {
	if f.failSnapshots {
		return nil, errBoom
	}
	for _, id := range ids {
		if err := f.badKey(id); err != nil {
			return nil, err
		}
	}
	return f.Memory.GetStockSnapshots(ctx, ownerID, ids)
}

func (f *flakyStore) DeleteSale(ctx context.Context, saleID string) error {
	if f.failDelete {
		return errBoom
	}
	return f.Memory.DeleteSale(ctx, saleID)
}

// recordingPublisher keeps every published change event
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (p *recordingPublisher) PublishChanges(ctx context.Context, events ...models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Table+":"+e.Op)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// mapCache is a SaleListCache backed by a map
type mapCache struct {
	mu    sync.Mutex
	lists map[string][]models.SaleDetail
	sets  int
}

func newMapCache() *mapCache {
	return &mapCache{lists: make(map[string][]models.SaleDetail)}
}

func (c *mapCache) GetSaleList(ctx context.Context, ownerID string) ([]models.SaleDetail, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.lists[ownerID]
	return list, ok, nil
}

func (c *mapCache) SetSaleList(ctx context.Context, ownerID string, sales []models.SaleDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[ownerID] = sales
	c.sets++
	return nil
}

func (c *mapCache) InvalidateSaleList(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, ownerID)
	return nil
}

// idempotencyMap is an IdempotencyStore backed by a map
type idempotencyMap struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *idempotencyMap) ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.keys[key]; ok {
		return existing, false, nil
	}
	m.keys[key] = value
	return value, true, nil
}

func (m *idempotencyMap) SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
	return nil
}

func (m *idempotencyMap) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type fixture struct {
	store     *flakyStore
	publisher *recordingPublisher
	cache     *mapCache
	notifier  *Notifier
	sales     *SalesService
	payments  *PaymentService
	inventory *InventoryService
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := &flakyStore{Memory: store.NewMemory()}
	pub := &recordingPublisher{}
	cache := newMapCache()
	notifier := NewNotifier(st, cache, pub, "test-instance")

	return &fixture{
		store:     st,
		publisher: pub,
		cache:     cache,
		notifier:  notifier,
		sales:     NewSalesService(st, notifier, &idempotencyMap{keys: make(map[string]string)}),
		payments:  NewPaymentService(st, notifier),
		inventory: NewInventoryService(st, notifier),
		ctx:       WithOwner(context.Background(), testOwner),
	}
}

func (f *fixture) addProduct(t *testing.T, name string, stock int64, pieces int) string {
	t.Helper()
	item := &models.InventoryItem{
		UserID:              testOwner,
		Name:                name,
		StockQuantityKg:     kg(stock),
		TotalPieces:         pieces,
		TotalPiecesSupplied: pieces,
		SellingPricePerKg:   kg(1500),
		MinimumStockKg:      kg(20),
	}
	require.NoError(t, f.store.CreateInventoryItem(context.Background(), item))
	return item.ID
}

func (f *fixture) stock(t *testing.T, productID string) (decimal.Decimal, int) {
	t.Helper()
	item, err := f.store.GetInventoryItem(context.Background(), productID)
	require.NoError(t, err)
	return item.StockQuantityKg, item.TotalPieces
}

func (f *fixture) requireStock(t *testing.T, productID string, wantKg int64, wantPieces int) {
	t.Helper()
	gotKg, gotPieces := f.stock(t, productID)
	require.True(t, kg(wantKg).Equal(gotKg), "stock: want %dkg, got %skg", wantKg, gotKg)
	require.Equal(t, wantPieces, gotPieces, "pieces")
}

func saleRequest(productID string, quantity int64, pieces int) *SaleRequest {
	return &SaleRequest{
		PaymentMethod: models.PaymentMethodCash,
		Items: []SaleItemRequest{
			{ProductID: productID, Quantity: kg(quantity), UnitPrice: kg(1500), PiecesSold: pieces},
		},
		TotalAmount: kg(quantity * 1500),
		AmountPaid:  kg(quantity * 1500),
	}
}
