package service

import (
	"context"
	"fmt"
	"time"

	"sales-ledger/internal/models"
	"sales-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Change describes rows written by one ledger step
type Change struct {
	Table  string
	Op     string
	RowIDs []string
}

// Notifier tells observers about ledger writes: it publishes row change
// events and rebuilds the owner's cached sale list.
type Notifier struct {
	sales     SaleLister
	cache     SaleListCache
	publisher ChangePublisher
	sourceID  string
	logger    *zap.Logger
}

// NewNotifier creates a notifier. cache and publisher may be nil.
func NewNotifier(sales SaleLister, cache SaleListCache, publisher ChangePublisher, sourceID string) *Notifier {
	if sourceID == "" {
		sourceID = uuid.New().String()
	}
	return &Notifier{
		sales:     sales,
		cache:     cache,
		publisher: publisher,
		sourceID:  sourceID,
		logger:    util.Named("notifier"),
	}
}

// SourceID identifies events published by this process
func (n *Notifier) SourceID() string {
	return n.sourceID
}

// Changed publishes the changes and refreshes the owner's sale list.
// Failures are logged; the ledger write they describe already happened.
func (n *Notifier) Changed(ctx context.Context, ownerID string, changes ...Change) {
	if n.publisher != nil && len(changes) > 0 {
		events := make([]models.ChangeEvent, 0, len(changes))
		now := time.Now().UTC()
		for _, c := range changes {
			events = append(events, models.ChangeEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeRowChange,
					Timestamp: now,
				},
				Table:    c.Table,
				Op:       c.Op,
				OwnerID:  ownerID,
				RowIDs:   c.RowIDs,
				SourceID: n.sourceID,
			})
		}
		if err := n.publisher.PublishChanges(ctx, events...); err != nil {
			n.logger.Error("Failed to publish change events",
				zap.String("owner_id", ownerID),
				zap.Int("count", len(events)),
				zap.Error(err))
		}
	}

	if touchesSaleList(changes) {
		if _, err := n.RefreshSales(ctx, ownerID); err != nil {
			n.logger.Warn("Failed to refresh sale list", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
}

// RefreshSales re-reads the owner's joined sale list and caches it
func (n *Notifier) RefreshSales(ctx context.Context, ownerID string) ([]models.SaleDetail, error) {
	ctx, span := util.StartSpan(ctx, "Notifier.RefreshSales")
	defer span.End()

	sales, err := n.sales.ListSaleDetails(ctx, ownerID)
	if err != nil {
		util.RecordError(span, err)
		n.invalidate(ctx, ownerID)
		return nil, storageErr("list sales", err)
	}

	if n.cache != nil {
		if err := n.cache.SetSaleList(ctx, ownerID, sales); err != nil {
			n.logger.Warn("Failed to cache sale list", zap.String("owner_id", ownerID), zap.Error(err))
			n.invalidate(ctx, ownerID)
		}
	}
	return sales, nil
}

// Sales returns the owner's sale list, from cache when possible
func (n *Notifier) Sales(ctx context.Context, ownerID string) ([]models.SaleDetail, error) {
	if n.cache != nil {
		sales, ok, err := n.cache.GetSaleList(ctx, ownerID)
		switch {
		case err != nil:
			util.SaleCacheResultsTotal.WithLabelValues("error").Inc()
			n.logger.Warn("Sale list cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
		case ok:
			util.SaleCacheResultsTotal.WithLabelValues("hit").Inc()
			return sales, nil
		default:
			util.SaleCacheResultsTotal.WithLabelValues("miss").Inc()
		}
	}
	return n.RefreshSales(ctx, ownerID)
}

func (n *Notifier) invalidate(ctx context.Context, ownerID string) {
	if n.cache == nil {
		return
	}
	if err := n.cache.InvalidateSaleList(ctx, ownerID); err != nil {
		n.logger.Error("Failed to invalidate sale list", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func touchesSaleList(changes []Change) bool {
	for _, c := range changes {
		if affectsSaleList(c.Table) {
			return true
		}
	}
	return false
}

func affectsSaleList(table string) bool {
	switch table {
	case models.TableSales, models.TableSaleItems, models.TablePayments:
		return true
	}
	return false
}

// HandleChange refreshes the sale list for changes made by other processes
func (n *Notifier) HandleChange(ctx context.Context, event *models.ChangeEvent) error {
	if event.SourceID == n.sourceID || !affectsSaleList(event.Table) {
		return nil
	}
	if event.OwnerID == "" {
		return fmt.Errorf("change event %s has no owner", event.EventID)
	}
	_, err := n.RefreshSales(ctx, event.OwnerID)
	return err
}

func itemIDs(items []models.SaleItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func snapshotIDs(snaps []models.StockSnapshot) []string {
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ProductID)
	}
	return ids
}
