package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes for the cached admin views. Writes to the corresponding
// domain invalidate the whole prefix.
const (
	PrefixOrders    = "orders:"
	PrefixCustomers = "customers:"
	PrefixDashboard = "dashboard:"
)

// Cache is a redis-backed view cache for listing and dashboard responses.
// A nil *Cache is valid and turns every operation into a no-op, so the
// service runs unchanged without redis configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redis and verifies the connection with a ping.
func New(addr string, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Close closes the redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetJSON loads a cached value into dest. Returns false on miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores a value under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// InvalidatePrefix deletes every key under the given prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if c == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// InvalidateOrderViews drops cached order listings and dashboard
// aggregates after any order write.
func (c *Cache) InvalidateOrderViews(ctx context.Context) error {
	if err := c.InvalidatePrefix(ctx, PrefixOrders); err != nil {
		return err
	}
	return c.InvalidatePrefix(ctx, PrefixDashboard)
}

// InvalidateCustomerViews drops cached customer listings.
func (c *Cache) InvalidateCustomerViews(ctx context.Context) error {
	return c.InvalidatePrefix(ctx, PrefixCustomers)
}
