package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"todo-api/domain"
)

// Cache wraps a domain.Store with a Redis read-through cache for point reads.
// Listing always goes to the backing store.
type Cache struct {
	base  domain.Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base domain.Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Create(ctx context.Context, item domain.TodoItem) (domain.Versioned, error) {
	v, err := c.base.Create(ctx, item)
	if err != nil {
		return domain.Versioned{}, err
	}
	c.store(ctx, v)
	return v, nil
}

func (c *Cache) List(ctx context.Context) ([]domain.TodoItem, error) {
	return c.base.List(ctx)
}

func (c *Cache) Get(ctx context.Context, id string) (domain.Versioned, error) {
	if v, ok := c.load(ctx, id); ok {
		return v, nil
	}
	v, err := c.base.Get(ctx, id)
	if err != nil {
		return domain.Versioned{}, err
	}
	c.store(ctx, v)
	return v, nil
}

func (c *Cache) Replace(ctx context.Context, item domain.TodoItem, etag string) (domain.Versioned, error) {
	v, err := c.base.Replace(ctx, item, etag)
	if err != nil {
		// A conflict means the cached ETag is stale; drop it so the retry reads through.
		c.evict(ctx, item.ID)
		return domain.Versioned{}, err
	}
	c.store(ctx, v)
	return v, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	err := c.base.Delete(ctx, id)
	c.evict(ctx, id)
	return err
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) load(ctx context.Context, id string) (domain.Versioned, bool) {
	if c.redis == nil {
		return domain.Versioned{}, false
	}
	data, err := c.redis.Get(ctx, todoCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, todoCacheKey(id)).Err()
		}
		return domain.Versioned{}, false
	}
	var v domain.Versioned
	if err := json.Unmarshal(data, &v); err != nil || v.Item.ID != id {
		_ = c.redis.Del(ctx, todoCacheKey(id)).Err()
		return domain.Versioned{}, false
	}
	return v, true
}

func (c *Cache) store(ctx context.Context, v domain.Versioned) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, todoCacheKey(v.Item.ID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, id string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, todoCacheKey(id)).Result()
}

func todoCacheKey(id string) string {
	return "todo:" + id
}
