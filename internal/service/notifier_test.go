package service

import (
	"context"
	"errors"
	"testing"

	"sales-ledger/internal/models"
	"sales-ledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) PublishChanges(ctx context.Context, events ...models.ChangeEvent) error {
	return errors.New("broker unavailable")
}

func TestNotifierChangedStampsEvents(t *testing.T) {
	f := newFixture(t)

	f.notifier.Changed(context.Background(), testOwner,
		Change{models.TableSales, models.ChangeInsert, []string{"s-1"}},
		Change{models.TableSaleItems, models.ChangeInsert, []string{"i-1", "i-2"}})

	require.Len(t, f.publisher.events, 2)
	for _, e := range f.publisher.events {
		assert.NotEmpty(t, e.EventID)
		assert.Equal(t, models.EventTypeRowChange, e.EventType)
		assert.Equal(t, testOwner, e.OwnerID)
		assert.Equal(t, "test-instance", e.SourceID)
		assert.False(t, e.Timestamp.IsZero())
	}
	assert.Equal(t, []string{"i-1", "i-2"}, f.publisher.events[1].RowIDs)
	assert.Equal(t, 1, f.cache.sets)
}

func TestNotifierPublishFailureStillRefreshes(t *testing.T) {
	st := store.NewMemory()
	cache := newMapCache()
	n := NewNotifier(st, cache, failingPublisher{}, "")
	assert.NotEmpty(t, n.SourceID())

	n.Changed(context.Background(), testOwner, Change{models.TableSales, models.ChangeDelete, []string{"s-1"}})
	assert.Equal(t, 1, cache.sets)
}

func TestNotifierWithoutCacheOrPublisher(t *testing.T) {
	st := store.NewMemory()
	n := NewNotifier(st, nil, nil, "")

	require.NoError(t, st.CreateSale(context.Background(), &models.Sale{UserID: testOwner, PaymentMethod: models.PaymentMethodCash}))
	n.Changed(context.Background(), testOwner, Change{models.TableSales, models.ChangeInsert, []string{"x"}})

	sales, err := n.Sales(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestNotifierHandleChange(t *testing.T) {
	f := newFixture(t)

	own := &models.ChangeEvent{Table: models.TableSales, OwnerID: testOwner, SourceID: "test-instance"}
	require.NoError(t, f.notifier.HandleChange(context.Background(), own))
	assert.Zero(t, f.cache.sets, "own events are ignored")

	stock := &models.ChangeEvent{Table: models.TableInventory, OwnerID: testOwner, SourceID: "other"}
	require.NoError(t, f.notifier.HandleChange(context.Background(), stock))
	assert.Zero(t, f.cache.sets, "inventory events do not touch the sale list")

	remote := &models.ChangeEvent{Table: models.TablePayments, OwnerID: testOwner, SourceID: "other"}
	require.NoError(t, f.notifier.HandleChange(context.Background(), remote))
	assert.Equal(t, 1, f.cache.sets)

	orphan := &models.ChangeEvent{Table: models.TableSales, SourceID: "other"}
	assert.Error(t, f.notifier.HandleChange(context.Background(), orphan))
}
