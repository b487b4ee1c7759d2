package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"todo-api/domain"
)

// countingStore records calls into a MemoryStore.
type countingStore struct {
	*MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, id string) (domain.Versioned, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, id)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	base := &countingStore{MemoryStore: NewMemory()}
	return NewCache(base, client, ttl), base, mr
}

func TestCacheGetMissThenHit(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	item := domain.TodoItem{ID: "t1", Title: "milk", PartitionKey: "t1"}
	if _, err := base.MemoryStore.Create(ctx, item); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := cache.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Item != item || got.ETag == "" {
		t.Fatalf("unexpected item: %#v", got)
	}
	if base.gets != 1 {
		t.Fatalf("expected 1 backend read, got %d", base.gets)
	}
	if ttl := mr.TTL(todoCacheKey("t1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if cached != got {
		t.Fatalf("want %#v, got %#v", got, cached)
	}
	if base.gets != 1 {
		t.Fatalf("expected cached read to avoid backend, gets=%d", base.gets)
	}
}

func TestCacheCreateStoresItem(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	item := domain.TodoItem{ID: "c1", Title: "new", PartitionKey: "c1"}

	if _, err := cache.Create(ctx, item); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists(todoCacheKey("c1")) {
		t.Fatalf("expected created item in cache")
	}
	if _, err := cache.Get(ctx, "c1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if base.gets != 0 {
		t.Fatalf("expected read from cache, gets=%d", base.gets)
	}
}

func TestCacheDeleteEvicts(t *testing.T) {
	cache, _, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	if _, err := cache.Create(ctx, domain.TodoItem{ID: "d1", Title: "x", PartitionKey: "d1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := cache.Delete(ctx, "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists(todoCacheKey("d1")) {
		t.Fatalf("expected cache entry evicted")
	}
	if _, err := cache.Get(ctx, "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := cache.Delete(ctx, "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCacheReplaceConflictEvictsStaleETag(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	item := domain.TodoItem{ID: "r1", Title: "x", PartitionKey: "r1"}
	created, err := cache.Create(ctx, item)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// A write that bypasses the cache moves the ETag.
	if _, err := base.MemoryStore.Replace(ctx, domain.TodoItem{ID: "r1", Title: "y", PartitionKey: "r1"}, ""); err != nil {
		t.Fatalf("external replace: %v", err)
	}

	item.IsDone = true
	if _, err := cache.Replace(ctx, item, created.ETag); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if mr.Exists(todoCacheKey("r1")) {
		t.Fatalf("expected stale entry evicted")
	}
	fresh, err := cache.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Item.Title != "y" {
		t.Fatalf("expected fresh read, got %#v", fresh.Item)
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	if _, err := base.MemoryStore.Create(ctx, domain.TodoItem{ID: "k1", Title: "x", PartitionKey: "k1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mr.Set(todoCacheKey("k1"), "{not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	got, err := cache.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Item.ID != "k1" || base.gets != 1 {
		t.Fatalf("expected backend read, got %#v gets=%d", got, base.gets)
	}
}

func TestCacheRedisDownFallsBack(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	if _, err := base.MemoryStore.Create(ctx, domain.TodoItem{ID: "o1", Title: "x", PartitionKey: "o1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	mr.Close()

	if _, err := cache.Get(ctx, "o1"); err != nil {
		t.Fatalf("expected fallback to backend, got %v", err)
	}
	if base.gets != 1 {
		t.Fatalf("expected backend read, gets=%d", base.gets)
	}
}

func TestCacheZeroTTLSkipsStore(t *testing.T) {
	cache, _, mr := newTestCache(t, 0)
	if _, err := cache.Create(context.Background(), domain.TodoItem{ID: "z1", Title: "x", PartitionKey: "z1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if mr.Exists(todoCacheKey("z1")) {
		t.Fatalf("expected nothing cached with zero ttl")
	}
}
