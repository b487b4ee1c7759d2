package client

import (
	"strings"

	"todo-api/domain"
)

// State is the complete view state of a todo front end. Update never mutates
// a State in place; Items is copied whenever it changes.
type State struct {
	Items []domain.TodoItem
	Title string
	Error string
	// Deleting holds the rows whose delete call is in flight. It is
	// replaced, never written to, when it changes.
	Deleting map[string]bool
	// ConfirmID is the row awaiting delete confirmation.
	ConfirmID string
	Loading   bool
}

// Busy reports whether the row's delete control is disabled.
func (s State) Busy(id string) bool { return id != "" && s.Deleting[id] }

// Event is something that happened: a user action or a call result.
type Event interface{ event() }

type (
	Mounted           struct{}
	TitleChanged      struct{ Title string }
	AddRequested      struct{}
	AddSucceeded      struct{ Item domain.TodoItem }
	AddFailed         struct{ Err error }
	ReloadRequested   struct{}
	ListLoaded        struct{ Items []domain.TodoItem }
	ListFailed        struct{ Err error }
	DeleteRequested   struct{ ID string }
	DeleteConfirmed   struct{}
	DeleteCancelled   struct{}
	DeleteSucceeded   struct{ ID string }
	DeleteFailed      struct {
		ID  string
		Err error
	}
	MarkDoneRequested struct{ ID string }
	MarkDoneSucceeded struct{ Item domain.TodoItem }
	MarkDoneFailed    struct {
		ID  string
		Err error
	}
)

func (Mounted) event()           {}
func (TitleChanged) event()      {}
func (AddRequested) event()      {}
func (AddSucceeded) event()      {}
func (AddFailed) event()         {}
func (ReloadRequested) event()   {}
func (ListLoaded) event()        {}
func (ListFailed) event()        {}
func (DeleteRequested) event()   {}
func (DeleteConfirmed) event()   {}
func (DeleteCancelled) event()   {}
func (DeleteSucceeded) event()   {}
func (DeleteFailed) event()      {}
func (MarkDoneRequested) event() {}
func (MarkDoneSucceeded) event() {}
func (MarkDoneFailed) event()    {}

// Effect is a network call the front end must perform. Its result is fed
// back into Update as an Event.
type Effect interface{ effect() }

type (
	LoadList   struct{}
	CreateTodo struct{ Title string }
	DeleteTodo struct{ ID string }
	MarkDone   struct{ ID string }
)

func (LoadList) effect()   {}
func (CreateTodo) effect() {}
func (DeleteTodo) effect() {}
func (MarkDone) effect()   {}

// Update applies ev to s and returns the next state and the effects to run.
func Update(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Mounted, ReloadRequested:
		s.Error = ""
		s.Loading = true
		return s, []Effect{LoadList{}}

	case TitleChanged:
		s.Title = ev.Title
		return s, nil

	case AddRequested:
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return s, nil
		}
		s.Error = ""
		return s, []Effect{CreateTodo{Title: title}}

	case AddSucceeded:
		s.Title = ""
		s.Loading = true
		return s, []Effect{LoadList{}}

	case AddFailed:
		s.Error = ev.Err.Error()
		return s, nil

	case ListLoaded:
		s.Items = append([]domain.TodoItem(nil), ev.Items...)
		s.Loading = false
		return s, nil

	case ListFailed:
		s.Error = ev.Err.Error()
		s.Loading = false
		return s, nil

	case DeleteRequested:
		if ev.ID == "" || s.Busy(ev.ID) {
			return s, nil
		}
		s.ConfirmID = ev.ID
		return s, nil

	case DeleteCancelled:
		s.ConfirmID = ""
		return s, nil

	case DeleteConfirmed:
		id := s.ConfirmID
		s.ConfirmID = ""
		if id == "" || s.Busy(id) {
			return s, nil
		}
		s = setBusy(s, id, true)
		s.Error = ""
		return s, []Effect{DeleteTodo{ID: id}}

	case DeleteSucceeded:
		s.Items = without(s.Items, ev.ID)
		s = setBusy(s, ev.ID, false)
		return s, nil

	case DeleteFailed:
		s.Error = ev.Err.Error()
		s = setBusy(s, ev.ID, false)
		s.Loading = true
		return s, []Effect{LoadList{}}

	case MarkDoneRequested:
		if ev.ID == "" {
			return s, nil
		}
		s.Error = ""
		return s, []Effect{MarkDone{ID: ev.ID}}

	case MarkDoneSucceeded:
		s.Items = replaced(s.Items, ev.Item)
		return s, nil

	case MarkDoneFailed:
		s.Error = ev.Err.Error()
		s.Loading = true
		return s, []Effect{LoadList{}}
	}
	return s, nil
}

func setBusy(s State, id string, busy bool) State {
	if s.Deleting[id] == busy {
		return s
	}
	next := make(map[string]bool, len(s.Deleting)+1)
	for k := range s.Deleting {
		next[k] = true
	}
	if busy {
		next[id] = true
	} else {
		delete(next, id)
	}
	s.Deleting = next
	return s
}

func without(items []domain.TodoItem, id string) []domain.TodoItem {
	out := make([]domain.TodoItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func replaced(items []domain.TodoItem, item domain.TodoItem) []domain.TodoItem {
	out := make([]domain.TodoItem, len(items))
	for i, it := range items {
		if it.ID == item.ID {
			it = item
		}
		out[i] = it
	}
	return out
}
