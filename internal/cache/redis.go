package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisCache wraps the Redis client with the few operations the caches need.
// All calls are bounded by opTimeout so a slow Redis never stalls a request.
type RedisCache struct {
	client    *redis.Client
	opTimeout time.Duration
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		opTimeout: 500 * time.Millisecond,
	}
}

func (c *RedisCache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.opTimeout)
}

// Get returns nil, nil for a missing key.
func (c *RedisCache) Get(key string) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.Set(ctx, key, value, ttl).Err()
}

// GetMsgpack decodes the value at key into out. The bool is false on a miss
// or a decode failure.
func (c *RedisCache) GetMsgpack(key string, out interface{}) bool {
	data, err := c.Get(key)
	if err != nil || data == nil {
		return false
	}
	return msgpack.Unmarshal(data, out) == nil
}

func (c *RedisCache) SetMsgpack(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}

func (c *RedisCache) Delete(keys ...string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.Del(ctx, keys...).Err()
}

// DeletePattern removes all keys matching a glob pattern.
func (c *RedisCache) DeletePattern(pattern string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// GetInt returns 0 for a missing key.
func (c *RedisCache) GetInt(key string) (int64, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	n, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (c *RedisCache) Incr(key string) (int64, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.Incr(ctx, key).Result()
}

func (c *RedisCache) SetAdd(key string, members ...interface{}) error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.SAdd(ctx, key, members...).Err()
}

func (c *RedisCache) SetRemove(key string, members ...interface{}) error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.SRem(ctx, key, members...).Err()
}

func (c *RedisCache) SetMembers(key string) ([]string, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.SMembers(ctx, key).Result()
}

func (c *RedisCache) Ping() error {
	ctx, cancel := c.ctx()
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
