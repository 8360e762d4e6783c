// Package distlock implements distributed locking on a conditional-set
// store such as Redis.
package distlock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the minimal conditional-set surface a lock needs. A fake
// implementation is enough for unit tests.
type Client interface {
	// SetNX sets key to value with a TTL only when the key is absent
	// and reports whether it was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Del removes the key.
	Del(ctx context.Context, key string) error
	// Expire resets the key's TTL and reports whether the key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisClient adapts a go-redis client to the Client interface.
type RedisClient struct {
	rdb *redis.Client
}

func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func (c *RedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisClient) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.Expire(ctx, key, ttl).Result()
}

var _ Client = (*RedisClient)(nil)
