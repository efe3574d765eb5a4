package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-ledger/internal/ledger"
	"sales-ledger/internal/models"
	"sales-ledger/internal/store"
	"sales-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyPending = "pending"
)

// SalesStoreWithStock is what SalesService reads and writes
type SalesStoreWithStock interface {
	SalesStore
	StockStore
}

// SalesService owns sale creation, editing and deletion and keeps inventory
// stock in line with them.
type SalesService struct {
	store       SalesStoreWithStock
	notifier    *Notifier
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewSalesService creates a new sales service. idempotency may be nil.
func NewSalesService(store SalesStoreWithStock, notifier *Notifier, idempotency IdempotencyStore) *SalesService {
	return &SalesService{
		store:       store,
		notifier:    notifier,
		idempotency: idempotency,
		logger:      util.Named("sales"),
	}
}

// SaleItemRequest is one product line of a sale request
type SaleItemRequest struct {
	ID         string          `json:"id,omitempty"`
	ProductID  string          `json:"product_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	PiecesSold int             `json:"pieces_sold" binding:"min=0"`
}

// SaleRequest is the body of a create or edit
type SaleRequest struct {
	CustomerID     *string           `json:"customer_id"`
	PaymentMethod  string            `json:"payment_method" binding:"required,oneof=cash card transfer credit"`
	Status         string            `json:"status" binding:"omitempty,oneof=pending completed cancelled"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount       decimal.Decimal   `json:"discount"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	AmountPaid     decimal.Decimal   `json:"amount_paid"`
	CreatedAt      *time.Time        `json:"created_at"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

func (r *SaleRequest) validate() error {
	if len(r.Items) == 0 {
		return invalid("a sale needs at least one item")
	}
	if !models.ValidPaymentMethod(r.PaymentMethod) {
		return invalid("unknown payment method %q", r.PaymentMethod)
	}
	if r.Status != "" && !models.ValidSaleStatus(r.Status) {
		return invalid("unknown sale status %q", r.Status)
	}
	if r.Discount.IsNegative() || r.TotalAmount.IsNegative() || r.AmountPaid.IsNegative() {
		return invalid("amounts must not be negative")
	}
	if r.CustomerID != nil && *r.CustomerID == "" {
		r.CustomerID = nil
	}
	_, err := r.saleItems("")
	return err
}

func (r *SaleRequest) saleItems(saleID string) ([]models.SaleItem, error) {
	items := make([]models.SaleItem, 0, len(r.Items))
	for i, in := range r.Items {
		item, err := models.NewSaleItem(saleID, in.ProductID, in.Quantity, in.UnitPrice, in.PiecesSold)
		if err != nil {
			return nil, invalid("item %d: %v", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *SaleRequest) lines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(r.Items))
	for _, in := range r.Items {
		lines = append(lines, ledger.Line{ProductID: in.ProductID, Quantity: in.Quantity, Pieces: in.PiecesSold})
	}
	return lines
}

func (r *SaleRequest) createdAt() time.Time {
	if r.CreatedAt == nil {
		return time.Time{}
	}
	return r.CreatedAt.UTC()
}

// itemsTotal sums quantity * unit price; discount is not applied
func itemsTotal(items []models.SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// CreateSale records a sale with its items and takes the sold stock out of inventory.
// Stock is validated before anything is written; a rejected sale leaves no rows.
func (s *SalesService) CreateSale(ctx context.Context, req *SaleRequest) (*models.SaleDetail, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.CreateSale")
	defer span.End()

	if err := req.validate(); err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "invalid_input").Inc()
		return nil, err
	}

	owner := OwnerFromContext(ctx)
	if req.IdempotencyKey == "" || s.idempotency == nil {
		detail, err := s.createSale(ctx, owner, req)
		util.RecordError(span, err)
		return detail, err
	}

	key := fmt.Sprintf("%s:%s", owner, req.IdempotencyKey)
	existing, claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, key, idempotencyPending, idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency check failed, creating sale anyway",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
		return s.createSale(ctx, owner, req)
	}
	if !claimed {
		if existing == idempotencyPending {
			return nil, ErrDuplicateRequest
		}
		s.logger.Info("Duplicate sale request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("sale_id", existing))
		return s.GetSale(ctx, existing)
	}

	detail, err := s.createSale(ctx, owner, req)
	if err != nil && detail == nil {
		if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			s.logger.Error("Failed to release idempotency key", zap.String("idempotency_key", req.IdempotencyKey), zap.Error(relErr))
		}
		util.RecordError(span, err)
		return nil, err
	}
	if setErr := s.idempotency.SetIdempotencyKey(ctx, key, detail.ID, idempotencyTTL); setErr != nil {
		s.logger.Error("Failed to store idempotency key", zap.String("idempotency_key", req.IdempotencyKey), zap.Error(setErr))
	}
	return detail, err
}

// createSale returns a non-nil detail together with an error when the sale
// rows were written but the stock write failed.
func (s *SalesService) createSale(ctx context.Context, owner string, req *SaleRequest) (*models.SaleDetail, error) {
	lines := req.lines()
	if err := knownProducts(lines); err != nil {
		s.rejected("create", err)
		return nil, err
	}
	if err := s.checkCustomer(ctx, owner, req.CustomerID); err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "invalid_input").Inc()
		return nil, err
	}
	productIDs := ledger.ProductIDs(lines)

	snaps, err := s.store.GetStockSnapshots(ctx, owner, productIDs)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "storage").Inc()
		return nil, storageErr("fetch inventory", err)
	}

	updated, err := ledger.Apply(ledger.Index(snaps), lines)
	if err != nil {
		s.rejected("create", err)
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.SaleStatusCompleted
	}
	sale := &models.Sale{
		UserID:        owner,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		TotalAmount:   req.TotalAmount,
		AmountPaid:    req.AmountPaid,
		Discount:      req.Discount,
		CreatedAt:     req.createdAt(),
	}
	if err := s.store.CreateSale(ctx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "storage").Inc()
		return nil, storageErr("create sale", err)
	}

	items, _ := req.saleItems(sale.ID)
	if err := s.store.CreateSaleItems(ctx, items); err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "storage").Inc()
		s.logger.Error("Sale header written without items", zap.String("sale_id", sale.ID), zap.Error(err))
		s.notifier.Changed(ctx, owner, Change{models.TableSales, models.ChangeInsert, []string{sale.ID}})
		return &models.SaleDetail{Sale: *sale, Items: []models.SaleItem{}}, partialErr(ErrItemsNotRecorded, "create sale items", err)
	}

	detail := &models.SaleDetail{Sale: *sale, Items: items}
	changes := []Change{
		{models.TableSales, models.ChangeInsert, []string{sale.ID}},
		{models.TableSaleItems, models.ChangeInsert, itemIDs(items)},
	}

	stock := ledger.Values(updated, productIDs)
	if err := s.writeStock(ctx, stock); err != nil {
		util.SalesFailedTotal.WithLabelValues("create", "inventory_write").Inc()
		s.logger.Error("Sale recorded but inventory was not updated",
			zap.String("sale_id", sale.ID),
			zap.Strings("product_ids", productIDs),
			zap.Error(err))
		s.notifier.Changed(ctx, owner, changes...)
		return detail, partialErr(ErrInventoryNotUpdated, "update inventory", err)
	}

	changes = append(changes, Change{models.TableInventory, models.ChangeUpdate, snapshotIDs(stock)})
	s.notifier.Changed(ctx, owner, changes...)

	util.SalesCreatedTotal.Inc()
	util.SaleAmountTotal.Add(sale.TotalAmount.InexactFloat64())
	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID),
		zap.Int("items", len(items)),
		zap.String("total_amount", sale.TotalAmount.String()))

	return detail, nil
}

// UpdateSale replaces a sale's items and header. The stock effect of the old
// items is reversed and the new items applied as one net change per product.
// The total is recomputed from the items; the stored discount is left alone.
func (s *SalesService) UpdateSale(ctx context.Context, saleID string, req *SaleRequest) (*models.SaleDetail, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.UpdateSale", attribute.String("sale_id", saleID))
	defer span.End()

	if err := req.validate(); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "invalid_input").Inc()
		return nil, err
	}

	owner := OwnerFromContext(ctx)
	sale, err := s.ownedSale(ctx, owner, saleID)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if err := knownProducts(req.lines()); err != nil {
		s.rejected("update", err)
		return nil, err
	}
	if err := s.checkCustomer(ctx, owner, req.CustomerID); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "invalid_input").Inc()
		return nil, err
	}

	before, err := s.store.GetSaleItemsBySaleID(ctx, saleID)
	if err != nil {
		return nil, storageErr("fetch sale items", err)
	}

	beforeLines := ledger.LinesFromItems(before)
	afterLines := req.lines()
	productIDs := ledger.ProductIDs(beforeLines, afterLines)

	snaps, err := s.store.GetStockSnapshots(ctx, owner, productIDs)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "storage").Inc()
		return nil, storageErr("fetch inventory", err)
	}

	updated, err := ledger.Reconcile(ledger.Index(snaps), beforeLines, afterLines)
	if err != nil {
		s.rejected("update", err)
		util.RecordError(span, err)
		return nil, err
	}

	items, _ := req.saleItems(saleID)

	sale.CustomerID = req.CustomerID
	sale.TotalAmount = itemsTotal(items)
	sale.PaymentMethod = req.PaymentMethod
	if req.Status != "" {
		sale.Status = req.Status
	}
	sale.CreatedAt = req.createdAt()
	if err := s.store.UpdateSaleHeader(ctx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "storage").Inc()
		return nil, storageErr("update sale", err)
	}

	if err := s.store.DeleteSaleItemsBySaleID(ctx, saleID); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "storage").Inc()
		s.notifier.Changed(ctx, owner, Change{models.TableSales, models.ChangeUpdate, []string{saleID}})
		return nil, storageErr("delete old sale items", err)
	}
	if err := s.store.CreateSaleItems(ctx, items); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "storage").Inc()
		s.logger.Error("Sale items removed but new items not written", zap.String("sale_id", saleID), zap.Error(err))
		s.notifier.Changed(ctx, owner,
			Change{models.TableSales, models.ChangeUpdate, []string{saleID}},
			Change{models.TableSaleItems, models.ChangeDelete, itemIDs(before)})
		return nil, storageErr("create sale items", err)
	}

	detail := &models.SaleDetail{Sale: *sale, Items: items}
	changes := []Change{
		{models.TableSales, models.ChangeUpdate, []string{saleID}},
		{models.TableSaleItems, models.ChangeDelete, itemIDs(before)},
		{models.TableSaleItems, models.ChangeInsert, itemIDs(items)},
	}

	stock := ledger.Values(updated, productIDs)
	if err := s.writeStock(ctx, stock); err != nil {
		util.SalesFailedTotal.WithLabelValues("update", "inventory_write").Inc()
		s.logger.Error("Sale edited but inventory was not updated",
			zap.String("sale_id", saleID),
			zap.Strings("product_ids", productIDs),
			zap.Error(err))
		s.notifier.Changed(ctx, owner, changes...)
		return detail, partialErr(ErrInventoryNotUpdated, "update inventory", err)
	}

	changes = append(changes, Change{models.TableInventory, models.ChangeUpdate, snapshotIDs(stock)})
	s.notifier.Changed(ctx, owner, changes...)

	util.SalesUpdatedTotal.Inc()
	s.logger.Info("Sale updated",
		zap.String("sale_id", saleID),
		zap.Int("items_before", len(before)),
		zap.Int("items_after", len(items)))

	return detail, nil
}

// DeleteSale puts a sale's stock back and deletes the sale with its items.
// If the stock cannot be restored the sale is deleted anyway and the returned
// error wraps ErrInventoryNotRestored.
func (s *SalesService) DeleteSale(ctx context.Context, saleID string) error {
	ctx, span := util.StartSpan(ctx, "SalesService.DeleteSale", attribute.String("sale_id", saleID))
	defer span.End()

	owner := OwnerFromContext(ctx)
	if _, err := s.ownedSale(ctx, owner, saleID); err != nil {
		util.RecordError(span, err)
		return err
	}

	items, err := s.store.GetSaleItemsBySaleID(ctx, saleID)
	if err != nil {
		return storageErr("fetch sale items", err)
	}

	restored, restoreErr := s.restoreStock(ctx, owner, items)
	if restoreErr != nil {
		util.InventoryRestoreFailedTotal.Inc()
		s.logger.Error("Failed to restore inventory, deleting sale anyway",
			zap.String("sale_id", saleID),
			zap.Error(restoreErr))
	}

	changes := make([]Change, 0, 3)
	if len(restored) > 0 {
		changes = append(changes, Change{models.TableInventory, models.ChangeUpdate, snapshotIDs(restored)})
	}

	if err := s.store.DeleteSaleItemsBySaleID(ctx, saleID); err != nil {
		util.SalesFailedTotal.WithLabelValues("delete", "storage").Inc()
		s.notifier.Changed(ctx, owner, changes...)
		return storageErr("delete sale items", err)
	}
	changes = append(changes, Change{models.TableSaleItems, models.ChangeDelete, itemIDs(items)})

	if err := s.store.DeleteSale(ctx, saleID); err != nil {
		util.SalesFailedTotal.WithLabelValues("delete", "storage").Inc()
		s.notifier.Changed(ctx, owner, changes...)
		return storageErr("delete sale", err)
	}
	changes = append(changes, Change{models.TableSales, models.ChangeDelete, []string{saleID}})
	s.notifier.Changed(ctx, owner, changes...)

	util.SalesDeletedTotal.Inc()
	s.logger.Info("Sale deleted", zap.String("sale_id", saleID), zap.Int("items", len(items)))

	if restoreErr != nil {
		util.RecordError(span, restoreErr)
		return fmt.Errorf("%w: %w", ErrInventoryNotRestored, restoreErr)
	}
	return nil
}

func (s *SalesService) restoreStock(ctx context.Context, owner string, items []models.SaleItem) ([]models.StockSnapshot, error) {
	lines := ledger.LinesFromItems(items)
	productIDs := ledger.ProductIDs(lines)

	snaps, err := s.store.GetStockSnapshots(ctx, owner, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}

	restored := ledger.Values(ledger.Restore(ledger.Index(snaps), lines), productIDs)
	if err := s.writeStock(ctx, restored); err != nil {
		return nil, fmt.Errorf("failed to write inventory: %w", err)
	}
	return restored, nil
}

// UpdateSaleStatus sets a sale's status without touching anything else
func (s *SalesService) UpdateSaleStatus(ctx context.Context, saleID, status string) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.UpdateSaleStatus", attribute.String("sale_id", saleID))
	defer span.End()

	if !models.ValidSaleStatus(status) {
		return nil, invalid("unknown sale status %q", status)
	}

	owner := OwnerFromContext(ctx)
	sale, err := s.ownedSale(ctx, owner, saleID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateSaleStatus(ctx, saleID, status); err != nil {
		return nil, storageErr("update sale status", err)
	}
	sale.Status = status

	s.notifier.Changed(ctx, owner, Change{models.TableSales, models.ChangeUpdate, []string{saleID}})
	s.logger.Info("Sale status updated", zap.String("sale_id", saleID), zap.String("status", status))
	return sale, nil
}

// GetSale retrieves a sale with its items and customer name
func (s *SalesService) GetSale(ctx context.Context, saleID string) (*models.SaleDetail, error) {
	if !validID(saleID) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	detail, err := s.store.GetSaleDetail(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	if err != nil {
		return nil, storageErr("fetch sale", err)
	}
	if detail.UserID != OwnerFromContext(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	return detail, nil
}

// ListSales returns the caller's sales, newest first
func (s *SalesService) ListSales(ctx context.Context) ([]models.SaleDetail, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.ListSales")
	defer span.End()

	return s.notifier.Sales(ctx, OwnerFromContext(ctx))
}

func (s *SalesService) ownedSale(ctx context.Context, owner, saleID string) (*models.Sale, error) {
	if !validID(saleID) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	sale, err := s.store.GetSaleByID(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	if err != nil {
		return nil, storageErr("fetch sale", err)
	}
	if sale.UserID != owner {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	return sale, nil
}

// checkCustomer rejects a customer that does not exist or belongs to another owner
func (s *SalesService) checkCustomer(ctx context.Context, owner string, customerID *string) error {
	if customerID == nil {
		return nil
	}
	if !validID(*customerID) {
		return invalid("unknown customer %q", *customerID)
	}
	customer, err := s.store.GetCustomer(ctx, *customerID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && customer.UserID != owner) {
		return invalid("unknown customer %q", *customerID)
	}
	if err != nil {
		return storageErr("fetch customer", err)
	}
	return nil
}

func (s *SalesService) writeStock(ctx context.Context, snaps []models.StockSnapshot) error {
	start := time.Now()
	defer func() {
		util.InventoryUpsertLatency.Observe(time.Since(start).Seconds())
	}()
	return s.store.UpsertStockSnapshots(ctx, snaps)
}

func (s *SalesService) rejected(op string, err error) {
	reason := "other"
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, ledger.ErrInsufficientPieces):
		reason = "insufficient_pieces"
	case errors.Is(err, ledger.ErrProductNotFound):
		reason = "product_not_found"
	}
	util.SalesFailedTotal.WithLabelValues(op, reason).Inc()
	s.logger.Warn("Sale rejected", zap.String("op", op), zap.String("reason", reason), zap.Error(err))
}
