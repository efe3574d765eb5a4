package service

import (
	"context"
	"testing"

	"sales-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyStock(t *testing.T) {
	f := newFixture(t)
	catfish := f.addProduct(t, "Catfish-1kg", 10, 8)

	item, err := f.inventory.SupplyStock(f.ctx, catfish, &SupplyRequest{QuantityKg: kg(50), Pieces: 40})
	require.NoError(t, err)
	assert.True(t, kg(60).Equal(item.StockQuantityKg))
	assert.Equal(t, 48, item.TotalPieces)
	assert.Equal(t, 48, item.TotalPiecesSupplied)

	f.requireStock(t, catfish, 60, 48)
	assert.Equal(t, []string{"inventory:UPDATE"}, f.publisher.tables())
	assert.Zero(t, f.cache.sets, "inventory changes leave the sale list alone")
}

func TestSupplyStockValidation(t *testing.T) {
	f := newFixture(t)
	catfish := f.addProduct(t, "Catfish-1kg", 10, 8)

	_, err := f.inventory.SupplyStock(f.ctx, catfish, &SupplyRequest{QuantityKg: kg(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.inventory.SupplyStock(f.ctx, catfish, &SupplyRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.SupplyStock(f.ctx, "missing", &SupplyRequest{QuantityKg: kg(1)})
	assert.ErrorIs(t, err, ErrInventoryItemNotFound)

	other := WithOwner(context.Background(), "owner-2")
	_, err = f.inventory.SupplyStock(other, catfish, &SupplyRequest{QuantityKg: kg(1)})
	assert.ErrorIs(t, err, ErrInventoryItemNotFound)

	f.requireStock(t, catfish, 10, 8)
}

func TestSuppliedStockCanBeSold(t *testing.T) {
	f := newFixture(t)
	catfish := f.addProduct(t, "Catfish-1kg", 10, 0)

	_, err := f.sales.CreateSale(f.ctx, saleRequest(catfish, 30, 0))
	require.Error(t, err)

	_, err = f.inventory.SupplyStock(f.ctx, catfish, &SupplyRequest{QuantityKg: kg(25)})
	require.NoError(t, err)

	_, err = f.sales.CreateSale(f.ctx, saleRequest(catfish, 30, 0))
	require.NoError(t, err)
	f.requireStock(t, catfish, 5, 0)
}

func TestLowStock(t *testing.T) {
	f := newFixture(t)
	catfish := f.addProduct(t, "Catfish-1kg", 100, 80)
	tilapia := f.addProduct(t, "Tilapia", 25, 10)

	low, err := f.inventory.LowStock(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	// minimum stock is 20kg; selling 5kg of tilapia reaches it
	_, err = f.sales.CreateSale(f.ctx, saleRequest(tilapia, 5, 0))
	require.NoError(t, err)

	low, err = f.inventory.LowStock(f.ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, tilapia, low[0].ID)

	all, err := f.inventory.ListInventory(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, catfish, all[0].ID)
}

func TestListInventoryScopedToOwner(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "Catfish-1kg", 100, 80)
	require.NoError(t, f.store.CreateInventoryItem(context.Background(), &models.InventoryItem{
		UserID:          "owner-2",
		Name:            "Mackerel",
		StockQuantityKg: kg(5),
	}))

	items, err := f.inventory.ListInventory(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Catfish-1kg", items[0].Name)
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)

	item, err := f.inventory.CreateItem(f.ctx, &CreateItemRequest{
		Name:              "Catfish-1kg",
		SellingPricePerKg: kg(1500),
		StockQuantityKg:   kg(100),
		TotalPieces:       80,
		MinimumStockKg:    kg(20),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, testOwner, item.UserID)
	assert.Equal(t, 80, item.TotalPiecesSupplied)
	f.requireStock(t, item.ID, 100, 80)
	assert.Equal(t, []string{"inventory:INSERT"}, f.publisher.tables())

	_, err = f.inventory.CreateItem(f.ctx, &CreateItemRequest{Name: "Bad", StockQuantityKg: kg(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.inventory.CreateItem(f.ctx, &CreateItemRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
