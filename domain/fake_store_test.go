package domain

import (
	"context"
	"errors"
	"strconv"
)

type fakeStore struct {
	items   map[string]TodoItem
	etags   map[string]int
	creates int
	gets    int
	replace int
	err     error

	// conflicts makes the next n Replace calls fail with ErrConflict.
	conflicts int
	// onReplace runs before a Replace is applied.
	onReplace func(f *fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]TodoItem{}, etags: map[string]int{}}
}

func (f *fakeStore) etag(id string) string { return strconv.Itoa(f.etags[id]) }

func (f *fakeStore) Create(ctx context.Context, item TodoItem) (Versioned, error) {
	f.creates++
	if f.err != nil {
		return Versioned{}, f.err
	}
	if _, exists := f.items[item.ID]; exists {
		return Versioned{}, ErrConflict
	}
	f.items[item.ID] = item
	f.etags[item.ID]++
	return Versioned{Item: item, ETag: f.etag(item.ID)}, nil
}

func (f *fakeStore) List(ctx context.Context) ([]TodoItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []TodoItem
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Versioned, error) {
	f.gets++
	if f.err != nil {
		return Versioned{}, f.err
	}
	it, ok := f.items[id]
	if !ok {
		return Versioned{}, ErrNotFound
	}
	return Versioned{Item: it, ETag: f.etag(id)}, nil
}

func (f *fakeStore) Replace(ctx context.Context, item TodoItem, etag string) (Versioned, error) {
	f.replace++
	if f.onReplace != nil {
		f.onReplace(f)
	}
	if f.conflicts > 0 {
		f.conflicts--
		return Versioned{}, ErrConflict
	}
	if _, ok := f.items[item.ID]; !ok {
		return Versioned{}, ErrNotFound
	}
	if etag != "" && etag != f.etag(item.ID) {
		return Versioned{}, ErrConflict
	}
	f.items[item.ID] = item
	f.etags[item.ID]++
	return Versioned{Item: item, ETag: f.etag(item.ID)}, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

var errStoreDown = errors.New("store unavailable")
