package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sales-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Memory is an in-process store with the same behaviour as Store.
// Like the database it gives no cross-row atomicity: every call stands alone.
type Memory struct {
	mu        sync.RWMutex
	inventory map[string]models.InventoryItem
	customers map[string]models.Customer
	sales     map[string]models.Sale
	items     []models.SaleItem
	payments  []models.Payment
	now       func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		inventory: make(map[string]models.InventoryItem),
		customers: make(map[string]models.Customer),
		sales:     make(map[string]models.Sale),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// PutCustomer inserts or replaces a customer
func (m *Memory) PutCustomer(customer models.Customer) models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if customer.ID == "" {
		customer.ID = newID()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = m.now()
	}
	m.customers[customer.ID] = customer
	return customer
}

// GetCustomer retrieves a customer by ID
func (m *Memory) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customer, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return &customer, nil
}

// CreateInventoryItem inserts a new inventory item
func (m *Memory) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = newID()
	}
	now := m.now()
	item.CreatedAt, item.UpdatedAt = now, now
	m.inventory[item.ID] = *item
	return nil
}

// ListInventory retrieves all inventory items of an owner
func (m *Memory) ListInventory(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]models.InventoryItem, 0)
	for _, item := range m.inventory {
		if item.UserID == ownerID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Size < items[j].Size
	})
	return items, nil
}

// GetInventoryItem retrieves an inventory item by ID
func (m *Memory) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.inventory[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", id, ErrNotFound)
	}
	return &item, nil
}

// GetStockSnapshots retrieves current stock for an owner's products
func (m *Memory) GetStockSnapshots(ctx context.Context, ownerID string, productIDs []string) ([]models.StockSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]models.StockSnapshot, 0, len(productIDs))
	for _, id := range productIDs {
		if item, ok := m.inventory[id]; ok && item.UserID == ownerID {
			snaps = append(snaps, item.Snapshot())
		}
	}
	return snaps, nil
}

// UpsertStockSnapshots writes stock and piece counts for several products
func (m *Memory) UpsertStockSnapshots(ctx context.Context, snaps []models.StockSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, snap := range snaps {
		item, ok := m.inventory[snap.ProductID]
		if !ok {
			continue
		}
		item.StockQuantityKg = snap.StockQuantityKg
		item.TotalPieces = snap.TotalPieces
		item.UpdatedAt = now
		m.inventory[snap.ProductID] = item
	}
	return nil
}

// AddStock increments stock and pieces for a supply delivery
func (m *Memory) AddStock(ctx context.Context, productID string, kg decimal.Decimal, pieces int) (*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.inventory[productID]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", productID, ErrNotFound)
	}
	item.StockQuantityKg = item.StockQuantityKg.Add(kg)
	item.TotalPieces += pieces
	item.TotalPiecesSupplied += pieces
	item.UpdatedAt = m.now()
	m.inventory[productID] = item
	return &item, nil
}

// CreateSale creates a new sale header
func (m *Memory) CreateSale(ctx context.Context, sale *models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sale.ID == "" {
		sale.ID = newID()
	}
	now := m.now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
	m.sales[sale.ID] = *sale
	return nil
}

// GetSaleByID retrieves a sale by ID
func (m *Memory) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sale, ok := m.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	return &sale, nil
}

// UpdateSaleHeader updates the editable header fields of a sale
func (m *Memory) UpdateSaleHeader(ctx context.Context, sale *models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sales[sale.ID]
	if !ok {
		return fmt.Errorf("sale %s: %w", sale.ID, ErrNotFound)
	}
	stored.CustomerID = sale.CustomerID
	stored.TotalAmount = sale.TotalAmount
	stored.PaymentMethod = sale.PaymentMethod
	stored.Status = sale.Status
	if !sale.CreatedAt.IsZero() {
		stored.CreatedAt = sale.CreatedAt
	}
	stored.UpdatedAt = m.now()
	m.sales[sale.ID] = stored

	sale.CreatedAt, sale.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// UpdateSalePayment writes the paid amount and status of a sale
func (m *Memory) UpdateSalePayment(ctx context.Context, saleID string, amountPaid decimal.Decimal, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sale, ok := m.sales[saleID]
	if !ok {
		return fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
	}
	sale.AmountPaid = amountPaid
	sale.Status = status
	sale.UpdatedAt = m.now()
	m.sales[saleID] = sale
	return nil
}

// UpdateSaleStatus updates sale status
func (m *Memory) UpdateSaleStatus(ctx context.Context, saleID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sale, ok := m.sales[saleID]
	if !ok {
		return fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
	}
	sale.Status = status
	sale.UpdatedAt = m.now()
	m.sales[saleID] = sale
	return nil
}

// DeleteSale deletes a sale header and, like the foreign key cascade, its payments
func (m *Memory) DeleteSale(ctx context.Context, saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sales[saleID]; !ok {
		return fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
	}
	delete(m.sales, saleID)

	kept := m.payments[:0]
	for _, p := range m.payments {
		if p.SaleID != saleID {
			kept = append(kept, p)
		}
	}
	m.payments = kept
	return nil
}

// CreateSaleItems inserts all items of a sale
func (m *Memory) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
		m.items = append(m.items, items[i])
	}
	return nil
}

// GetSaleItemsBySaleID retrieves all items for a sale in insertion order
func (m *Memory) GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.itemsFor(saleID), nil
}

// DeleteSaleItemsBySaleID deletes all items for a sale
func (m *Memory) DeleteSaleItemsBySaleID(ctx context.Context, saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, item := range m.items {
		if item.SaleID != saleID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

// GetSaleDetail retrieves a sale joined with its items and customer name
func (m *Memory) GetSaleDetail(ctx context.Context, saleID string) (*models.SaleDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sale, ok := m.sales[saleID]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
	}
	detail := m.detail(sale)
	return &detail, nil
}

// ListSaleDetails retrieves an owner's sales with items and customer names, newest first
func (m *Memory) ListSaleDetails(ctx context.Context, ownerID string) ([]models.SaleDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	details := make([]models.SaleDetail, 0)
	for _, sale := range m.sales {
		if sale.UserID == ownerID {
			details = append(details, m.detail(sale))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].CreatedAt.After(details[j].CreatedAt)
	})
	return details, nil
}

// CreatePayment creates a new payment record
func (m *Memory) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment.ID == "" {
		payment.ID = newID()
	}
	payment.CreatedAt = m.now()
	m.payments = append(m.payments, *payment)
	return nil
}

// GetPaymentsBySaleID retrieves payments recorded against a sale, oldest first
func (m *Memory) GetPaymentsBySaleID(ctx context.Context, saleID string) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payments := make([]models.Payment, 0)
	for _, p := range m.payments {
		if p.SaleID == saleID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (m *Memory) itemsFor(saleID string) []models.SaleItem {
	items := make([]models.SaleItem, 0)
	for _, item := range m.items {
		if item.SaleID == saleID {
			items = append(items, item)
		}
	}
	return items
}

func (m *Memory) detail(sale models.Sale) models.SaleDetail {
	detail := models.SaleDetail{Sale: sale, Items: m.itemsFor(sale.ID)}
	if sale.CustomerID != nil {
		if customer, ok := m.customers[*sale.CustomerID]; ok && customer.UserID == sale.UserID {
			name := customer.Name
			detail.CustomerName = &name
		}
	}
	return detail
}
