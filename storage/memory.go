package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"todo-api/domain"
)

// MemoryStore is an in-process store for local development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	seq   uint64
}

type memoryEntry struct {
	item domain.TodoItem
	etag string
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{items: map[string]memoryEntry{}}
}

func (s *MemoryStore) nextETag() string {
	s.seq++
	return strconv.FormatUint(s.seq, 10)
}

func (s *MemoryStore) Create(_ context.Context, item domain.TodoItem) (domain.Versioned, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return domain.Versioned{}, fmt.Errorf("memory create %s: %w", item.ID, domain.ErrConflict)
	}
	ent := memoryEntry{item: item, etag: s.nextETag()}
	s.items[item.ID] = ent
	return domain.Versioned{Item: ent.item, ETag: ent.etag}, nil
}

func (s *MemoryStore) List(_ context.Context) ([]domain.TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.TodoItem, 0, len(s.items))
	for _, ent := range s.items {
		items = append(items, ent.item)
	}
	return items, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Versioned, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.items[id]
	if !ok {
		return domain.Versioned{}, domain.ErrNotFound
	}
	return domain.Versioned{Item: ent.item, ETag: ent.etag}, nil
}

func (s *MemoryStore) Replace(_ context.Context, item domain.TodoItem, etag string) (domain.Versioned, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok {
		return domain.Versioned{}, domain.ErrNotFound
	}
	if etag != "" && etag != cur.etag {
		return domain.Versioned{}, fmt.Errorf("memory replace %s: %w", item.ID, domain.ErrConflict)
	}
	ent := memoryEntry{item: item, etag: s.nextETag()}
	s.items[item.ID] = ent
	return domain.Versioned{Item: ent.item, ETag: ent.etag}, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
