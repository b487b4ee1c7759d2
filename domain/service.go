package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store is the persistence port for todo items. Point operations address an
// item by id and its partition key; implementations translate a missing item
// to ErrNotFound and a rejected write to ErrConflict.
type Store interface {
	Create(ctx context.Context, item TodoItem) (Versioned, error)
	List(ctx context.Context) ([]TodoItem, error)
	Get(ctx context.Context, id string) (Versioned, error)
	// Replace rewrites the whole item. A non-empty etag makes the write
	// conditional on the item not having changed since it was read.
	Replace(ctx context.Context, item TodoItem, etag string) (Versioned, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Event types published after successful mutations.
const (
	TodoCreated = "todo-created"
	TodoDone    = "todo-done"
	TodoDeleted = "todo-deleted"
)

// Event describes a committed change to a single item.
type Event struct {
	Type string    `json:"type"`
	ID   string    `json:"id"`
	Item *TodoItem `json:"item,omitempty"`
	Time int64     `json:"time"`
}

// EventPublisher receives change events. Publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

const markDoneAttempts = 3

// Service implements the todo operations on top of a Store.
type Service struct {
	store  Store
	events EventPublisher
	log    *log.Logger
	newID  func() string
	now    func() time.Time
}

// NewService creates a Service. events may be nil.
func NewService(store Store, events EventPublisher, logger *log.Logger) *Service {
	if store == nil {
		panic("domain.NewService: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{store: store, events: events, log: logger, now: time.Now}
}

// Create validates the request, fills defaults and writes the item.
func (s *Service) Create(ctx context.Context, req CreateRequest) (TodoItem, error) {
	item, err := NewTodoItem(req, s.newID)
	if err != nil {
		return TodoItem{}, err
	}
	created, err := s.store.Create(ctx, item)
	if err != nil {
		return TodoItem{}, fmt.Errorf("create todo %s: %w", item.ID, err)
	}
	s.publish(ctx, TodoCreated, created.Item.ID, &created.Item)
	return created.Item, nil
}

// List returns every stored item. It never returns a nil slice on success.
func (s *Service) List(ctx context.Context) ([]TodoItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if items == nil {
		items = []TodoItem{}
	}
	return items, nil
}

// Get returns the item with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (TodoItem, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return TodoItem{}, err
	}
	return v.Item, nil
}

// MarkDone sets isDone on the item and rewrites it. The write is guarded by
// the ETag of the preceding read; if the item changes in between, the
// read-modify-write is retried on fresh state.
func (s *Service) MarkDone(ctx context.Context, id string) (TodoItem, error) {
	for attempt := 1; attempt <= markDoneAttempts; attempt++ {
		cur, err := s.store.Get(ctx, id)
		if err != nil {
			return TodoItem{}, err
		}
		item := cur.Item
		item.IsDone = true

		updated, err := s.store.Replace(ctx, item, cur.ETag)
		if err == nil {
			s.publish(ctx, TodoDone, id, &updated.Item)
			return updated.Item, nil
		}
		if errors.Is(err, ErrNotFound) || !errors.Is(err, ErrConflict) {
			return TodoItem{}, err
		}
		s.log.WithFields(log.Fields{"todo": id, "attempt": attempt}).Debug("mark done lost etag race, retrying")
	}
	return TodoItem{}, fmt.Errorf("mark done %s after %d attempts: %w", id, markDoneAttempts, ErrConflict)
}

// Delete removes the item or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, TodoDeleted, id, nil)
	return nil
}

// Ping checks connectivity with the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, typ, id string, item *TodoItem) {
	if s.events == nil {
		return
	}
	ev := Event{Type: typ, ID: id, Item: item, Time: s.now().UnixMilli()}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithFields(log.Fields{"todo": id, "event": typ}).WithError(err).Warn("publish change event failed")
	}
}
