package service

import (
	"context"
	"errors"
	"fmt"

	"sales-ledger/internal/models"
	"sales-ledger/internal/store"
	"sales-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// InventoryService serves stock levels and records supply deliveries
type InventoryService struct {
	store    InventoryStore
	notifier *Notifier
	logger   *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store InventoryStore, notifier *Notifier) *InventoryService {
	return &InventoryService{
		store:    store,
		notifier: notifier,
		logger:   util.Named("inventory"),
	}
}

// SupplyRequest is a stock delivery for one product
type SupplyRequest struct {
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	Pieces     int             `json:"pieces" binding:"min=0"`
}

// CreateItemRequest registers a new product variant with its opening stock
type CreateItemRequest struct {
	Name              string          `json:"name" binding:"required"`
	Size              string          `json:"size"`
	CostPricePerKg    decimal.Decimal `json:"cost_price_per_kg"`
	SellingPricePerKg decimal.Decimal `json:"selling_price_per_kg"`
	StockQuantityKg   decimal.Decimal `json:"stock_quantity_kg"`
	TotalPieces       int             `json:"total_pieces" binding:"min=0"`
	MinimumStockKg    decimal.Decimal `json:"minimum_stock_kg"`
	Barcode           *string         `json:"barcode"`
}

// CreateItem adds a product to the caller's inventory
func (is *InventoryService) CreateItem(ctx context.Context, req *CreateItemRequest) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.CreateItem")
	defer span.End()

	if req.Name == "" {
		return nil, invalid("name is required")
	}
	for _, v := range []decimal.Decimal{req.CostPricePerKg, req.SellingPricePerKg, req.StockQuantityKg, req.MinimumStockKg} {
		if v.IsNegative() {
			return nil, invalid("prices and quantities must not be negative")
		}
	}
	if req.TotalPieces < 0 {
		return nil, invalid("pieces must not be negative")
	}

	owner := OwnerFromContext(ctx)
	item := &models.InventoryItem{
		UserID:              owner,
		Name:                req.Name,
		Size:                req.Size,
		CostPricePerKg:      req.CostPricePerKg,
		SellingPricePerKg:   req.SellingPricePerKg,
		StockQuantityKg:     req.StockQuantityKg,
		TotalPiecesSupplied: req.TotalPieces,
		TotalPieces:         req.TotalPieces,
		MinimumStockKg:      req.MinimumStockKg,
		Barcode:             req.Barcode,
	}
	if err := is.store.CreateInventoryItem(ctx, item); err != nil {
		util.RecordError(span, err)
		return nil, storageErr("create inventory item", err)
	}

	is.notifier.Changed(ctx, owner, Change{models.TableInventory, models.ChangeInsert, []string{item.ID}})
	is.logger.Info("Inventory item created", zap.String("product_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// ListInventory returns the caller's inventory items
func (is *InventoryService) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := is.store.ListInventory(ctx, OwnerFromContext(ctx))
	if err != nil {
		return nil, storageErr("list inventory", err)
	}
	return items, nil
}

// LowStock returns items at or below their reorder threshold
func (is *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := is.ListInventory(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]models.InventoryItem, 0)
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low, nil
}

// SupplyStock adds a delivery to a product's stock and piece counts
func (is *InventoryService) SupplyStock(ctx context.Context, productID string, req *SupplyRequest) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.SupplyStock", attribute.String("product_id", productID))
	defer span.End()

	if req.QuantityKg.IsNegative() || req.Pieces < 0 {
		return nil, invalid("supplied quantities must not be negative")
	}
	if req.QuantityKg.IsZero() && req.Pieces == 0 {
		return nil, invalid("nothing to supply")
	}

	owner := OwnerFromContext(ctx)
	if !validID(productID) {
		return nil, fmt.Errorf("%w: %s", ErrInventoryItemNotFound, productID)
	}
	current, err := is.store.GetInventoryItem(ctx, productID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && current.UserID != owner) {
		return nil, fmt.Errorf("%w: %s", ErrInventoryItemNotFound, productID)
	}
	if err != nil {
		return nil, storageErr("fetch inventory item", err)
	}

	item, err := is.store.AddStock(ctx, productID, req.QuantityKg, req.Pieces)
	if err != nil {
		util.RecordError(span, err)
		return nil, storageErr("add stock", err)
	}

	is.notifier.Changed(ctx, owner, Change{models.TableInventory, models.ChangeUpdate, []string{productID}})

	util.StockSuppliedKgTotal.Add(req.QuantityKg.InexactFloat64())
	is.logger.Info("Stock supplied",
		zap.String("product_id", productID),
		zap.String("quantity_kg", req.QuantityKg.String()),
		zap.Int("pieces", req.Pieces),
		zap.String("stock_quantity_kg", item.StockQuantityKg.String()))

	return item, nil
}
