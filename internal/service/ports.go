package service

import (
	"context"
	"time"

	"sales-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// SalesStore is the persistence the ledger needs for sale headers and lines
type SalesStore interface {
	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	UpdateSaleHeader(ctx context.Context, sale *models.Sale) error
	UpdateSaleStatus(ctx context.Context, saleID, status string) error
	DeleteSale(ctx context.Context, saleID string) error
	CreateSaleItems(ctx context.Context, items []models.SaleItem) error
	GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error)
	DeleteSaleItemsBySaleID(ctx context.Context, saleID string) error
	GetSaleDetail(ctx context.Context, saleID string) (*models.SaleDetail, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
}

// SaleLister reads an owner's joined sale list
type SaleLister interface {
	ListSaleDetails(ctx context.Context, ownerID string) ([]models.SaleDetail, error)
}

// StockStore reads and batch-writes inventory stock levels. Reads only see
// the given owner's products.
type StockStore interface {
	GetStockSnapshots(ctx context.Context, ownerID string, productIDs []string) ([]models.StockSnapshot, error)
	UpsertStockSnapshots(ctx context.Context, snaps []models.StockSnapshot) error
}

// InventoryStore is the persistence behind inventory reads and supply deliveries
type InventoryStore interface {
	StockStore
	ListInventory(ctx context.Context, ownerID string) ([]models.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	AddStock(ctx context.Context, productID string, kg decimal.Decimal, pieces int) (*models.InventoryItem, error)
}

// PaymentStore is the persistence behind payment recording
type PaymentStore interface {
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	UpdateSalePayment(ctx context.Context, saleID string, amountPaid decimal.Decimal, status string) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentsBySaleID(ctx context.Context, saleID string) ([]models.Payment, error)
}

// LedgerStore is everything the services need; store.Store and store.Memory implement it
type LedgerStore interface {
	SalesStore
	SaleLister
	InventoryStore
	PaymentStore
}

// ChangePublisher emits row change notifications
type ChangePublisher interface {
	PublishChanges(ctx context.Context, events ...models.ChangeEvent) error
}

// SaleListCache holds each owner's joined sale list
type SaleListCache interface {
	GetSaleList(ctx context.Context, ownerID string) ([]models.SaleDetail, bool, error)
	SetSaleList(ctx context.Context, ownerID string, sales []models.SaleDetail) error
	InvalidateSaleList(ctx context.Context, ownerID string) error
}

// IdempotencyStore remembers which request created which sale
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}
