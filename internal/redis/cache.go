package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reservation-service/internal/models"
)

const (
	itemKeyPrefix  = "item:"
	defaultItemTTL = 5 * time.Minute
)

// Cache caches item ledger views in Redis
type Cache struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// Config holds Redis cache configuration
type Config struct {
	Addrs       []string
	Password    string
	DB          int
	ClusterMode bool
	TTL         time.Duration
	KeyPrefix   string
}

// NewCache creates a new Redis-backed item cache and verifies connectivity
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	var client redis.UniversalClient
	if cfg.ClusterMode {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addrs[0],
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultItemTTL
	}

	return &Cache{client: client, ttl: ttl, keyPrefix: cfg.KeyPrefix}, nil
}

// GetItem retrieves a cached item. A miss returns (nil, nil).
func (c *Cache) GetItem(ctx context.Context, itemCode string) (*models.InventoryItem, error) {
	data, err := c.client.Get(ctx, c.itemKey(itemCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item from cache: %w", err)
	}

	var item models.InventoryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached item: %w", err)
	}

	return &item, nil
}

// SetItem caches an item with the configured TTL
func (c *Cache) SetItem(ctx context.Context, item *models.InventoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item for cache: %w", err)
	}

	if err := c.client.Set(ctx, c.itemKey(item.ItemCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}

	return nil
}

// DeleteItem drops an item from the cache
func (c *Cache) DeleteItem(ctx context.Context, itemCode string) error {
	if err := c.client.Del(ctx, c.itemKey(itemCode)).Err(); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) itemKey(itemCode string) string {
	return c.keyPrefix + itemKeyPrefix + itemCode
}
