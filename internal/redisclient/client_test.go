package redisclient

import (
	"context"
	"testing"
	"time"

	"sales-ledger/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestSaleListRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.GetSaleList(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, ok)

	name := "Mama Tunde"
	sales := []models.SaleDetail{{
		Sale: models.Sale{
			ID:          "sale-1",
			UserID:      "owner-1",
			Status:      models.SaleStatusPending,
			TotalAmount: decimal.RequireFromString("4500.50"),
		},
		CustomerName: &name,
		Items: []models.SaleItem{
			{ID: "item-1", SaleID: "sale-1", ProductID: "p1", Quantity: decimal.RequireFromString("2.5"), PiecesSold: 2},
		},
	}}
	require.NoError(t, c.SetSaleList(ctx, "owner-1", sales))

	got, ok, err := c.GetSaleList(ctx, "owner-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.True(t, sales[0].TotalAmount.Equal(got[0].TotalAmount))
	assert.Equal(t, "Mama Tunde", *got[0].CustomerName)
	assert.Equal(t, 2, got[0].Items[0].PiecesSold)

	assert.Equal(t, time.Minute, mr.TTL("sales:list:owner-1"))

	require.NoError(t, c.InvalidateSaleList(ctx, "owner-1"))
	_, ok, err = c.GetSaleList(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaleListExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetSaleList(ctx, "owner-1", []models.SaleDetail{}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.GetSaleList(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimIdempotencyKey(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	value, claimed, err := c.ClaimIdempotencyKey(ctx, "req-1", "pending", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "pending", value)

	require.NoError(t, c.SetIdempotencyKey(ctx, "req-1", "sale-42", time.Hour))

	value, claimed, err = c.ClaimIdempotencyKey(ctx, "req-1", "pending", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "sale-42", value)

	require.NoError(t, c.ReleaseIdempotencyKey(ctx, "req-1"))
	_, claimed, err = c.ClaimIdempotencyKey(ctx, "req-1", "pending", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}
