package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sales-ledger/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, saleListTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb, saleListTTL), nil
}

// New wraps an existing Redis client
func New(rdb *redis.Client, saleListTTL time.Duration) *Client {
	return &Client{rdb: rdb, ttl: saleListTTL}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func saleListKey(ownerID string) string {
	return fmt.Sprintf("sales:list:%s", ownerID)
}

// SetSaleList stores an owner's joined sale list
func (c *Client) SetSaleList(ctx context.Context, ownerID string, sales []models.SaleDetail) error {
	payload, err := json.Marshal(sales)
	if err != nil {
		return fmt.Errorf("failed to marshal sale list: %w", err)
	}
	return c.rdb.Set(ctx, saleListKey(ownerID), payload, c.ttl).Err()
}

// GetSaleList returns the cached sale list; ok is false on a cache miss
func (c *Client) GetSaleList(ctx context.Context, ownerID string) (sales []models.SaleDetail, ok bool, err error) {
	payload, err := c.rdb.Get(ctx, saleListKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := json.Unmarshal(payload, &sales); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal sale list: %w", err)
	}
	return sales, true, nil
}

// InvalidateSaleList drops an owner's cached sale list
func (c *Client) InvalidateSaleList(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, saleListKey(ownerID)).Err()
}

// ClaimIdempotencyKey records key -> value unless key is already taken.
// It returns the value stored under key and whether this call claimed it.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	redisKey := fmt.Sprintf("idempotency:%s", key)

	claimed, err := c.rdb.SetNX(ctx, redisKey, value, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if claimed {
		return value, true, nil
	}

	existing, err := c.rdb.Get(ctx, redisKey).Result()
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

// SetIdempotencyKey overwrites the value stored under key
func (c *Client) SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// ReleaseIdempotencyKey forgets key so the request can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", key)).Err()
}
