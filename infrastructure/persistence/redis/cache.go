// Package redis provides a Redis-backed implementation of the Cache port.
// Values are stored as JSON; Get returns the raw bytes and callers decode
// into their own types.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"learnengine/application/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache implements ports.Cache on a Redis connection. Used as the shared
// hot layer in front of the DynamoDB DAG store when REDIS_ADDRESS is set.
type Cache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewCache creates a Redis cache with a key prefix.
func NewCache(client *redis.Client, prefix string, logger *zap.Logger) ports.Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// NewClient dials Redis with the standard options.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get retrieves the raw JSON bytes stored under key.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return json.RawMessage(data), true
}

// Set stores a value as JSON with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, time.Duration(ttl)*time.Second).Err()
}

// Delete removes a value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Clear removes every key under the cache prefix.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
