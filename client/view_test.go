package client

import (
	"errors"
	"reflect"
	"testing"

	"todo-api/domain"
)

func items(ids ...string) []domain.TodoItem {
	out := make([]domain.TodoItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.TodoItem{ID: id, Title: "t-" + id, PartitionKey: id})
	}
	return out
}

func TestMountedLoadsList(t *testing.T) {
	s, eff := Update(State{Error: "old"}, Mounted{})
	if !reflect.DeepEqual(eff, []Effect{LoadList{}}) {
		t.Fatalf("unexpected effects %#v", eff)
	}
	if s.Error != "" || !s.Loading {
		t.Fatalf("unexpected state %#v", s)
	}

	s, eff = Update(s, ListLoaded{Items: items("a", "b")})
	if eff != nil || s.Loading || len(s.Items) != 2 {
		t.Fatalf("unexpected state %#v effects %#v", s, eff)
	}
}

func TestAddIgnoresBlankTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		in := State{Title: title, Error: "keep"}
		s, eff := Update(in, AddRequested{})
		if eff != nil || !reflect.DeepEqual(s, in) {
			t.Fatalf("title %q: expected no-op, got %#v %#v", title, s, eff)
		}
	}
}

func TestAddFlow(t *testing.T) {
	s, _ := Update(State{}, TitleChanged{Title: "  Buy milk "})
	s, eff := Update(s, AddRequested{})
	if !reflect.DeepEqual(eff, []Effect{CreateTodo{Title: "Buy milk"}}) {
		t.Fatalf("unexpected effects %#v", eff)
	}

	failed, eff := Update(s, AddFailed{Err: errors.New("POST /todos failed: 500")})
	if eff != nil || failed.Error != "POST /todos failed: 500" || failed.Title != "  Buy milk " {
		t.Fatalf("failure must keep title and show error: %#v", failed)
	}

	s, eff = Update(s, AddSucceeded{Item: items("a")[0]})
	if s.Title != "" || !reflect.DeepEqual(eff, []Effect{LoadList{}}) {
		t.Fatalf("success must clear title and reload: %#v %#v", s, eff)
	}
}

func TestListFailedShowsError(t *testing.T) {
	s, _ := Update(State{Items: items("a")}, Mounted{})
	s, eff := Update(s, ListFailed{Err: errors.New("GET /todos failed: 503")})
	if eff != nil || s.Error != "GET /todos failed: 503" || s.Loading || len(s.Items) != 1 {
		t.Fatalf("unexpected state %#v", s)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	start := State{Items: items("a", "b")}
	s, eff := Update(start, DeleteRequested{ID: "a"})
	if eff != nil || s.ConfirmID != "a" {
		t.Fatalf("expected pending confirmation, got %#v %#v", s, eff)
	}

	cancelled, eff := Update(s, DeleteCancelled{})
	if eff != nil || cancelled.ConfirmID != "" || len(cancelled.Items) != 2 {
		t.Fatalf("cancel must leave items alone: %#v", cancelled)
	}

	s, eff = Update(s, DeleteConfirmed{})
	if !reflect.DeepEqual(eff, []Effect{DeleteTodo{ID: "a"}}) || !s.Busy("a") || s.ConfirmID != "" {
		t.Fatalf("unexpected state %#v effects %#v", s, eff)
	}
}

func TestDeleteWhileBusyIsIgnored(t *testing.T) {
	s := State{Items: items("a"), Deleting: map[string]bool{"a": true}}
	next, eff := Update(s, DeleteRequested{ID: "a"})
	if eff != nil || next.ConfirmID != "" {
		t.Fatalf("busy row must ignore delete: %#v %#v", next, eff)
	}
}

func TestDeleteSucceededRemovesLocally(t *testing.T) {
	s := State{Items: items("a", "b"), Deleting: map[string]bool{"a": true}}
	before := s.Items
	next, eff := Update(s, DeleteSucceeded{ID: "a"})
	if eff != nil || next.Busy("a") {
		t.Fatalf("unexpected state %#v effects %#v", next, eff)
	}
	if len(next.Items) != 1 || next.Items[0].ID != "b" {
		t.Fatalf("expected only b left, got %#v", next.Items)
	}
	if len(before) != 2 || before[0].ID != "a" {
		t.Fatalf("input state was mutated: %#v", before)
	}
}

func TestDeleteFailedReloads(t *testing.T) {
	s := State{Items: items("a"), Deleting: map[string]bool{"a": true}}
	next, eff := Update(s, DeleteFailed{ID: "a", Err: errors.New("DELETE /todos/a failed: 500")})
	if next.Busy("a") || next.Error != "DELETE /todos/a failed: 500" {
		t.Fatalf("unexpected state %#v", next)
	}
	if !reflect.DeepEqual(eff, []Effect{LoadList{}}) {
		t.Fatalf("expected reload, got %#v", eff)
	}
}

func TestMarkDoneReplacesItem(t *testing.T) {
	s := State{Items: items("a", "b"), Error: "old"}
	s, eff := Update(s, MarkDoneRequested{ID: "b"})
	if s.Error != "" || !reflect.DeepEqual(eff, []Effect{MarkDone{ID: "b"}}) {
		t.Fatalf("unexpected state %#v effects %#v", s, eff)
	}
	before := s.Items
	done := before[1]
	done.IsDone = true
	s, _ = Update(s, MarkDoneSucceeded{Item: done})
	if !s.Items[1].IsDone || s.Items[0].IsDone {
		t.Fatalf("unexpected items %#v", s.Items)
	}
	if before[1].IsDone {
		t.Fatalf("input items were mutated")
	}

	s, eff = Update(s, MarkDoneFailed{ID: "a", Err: errors.New("boom")})
	if s.Error != "boom" || !reflect.DeepEqual(eff, []Effect{LoadList{}}) {
		t.Fatalf("unexpected state %#v effects %#v", s, eff)
	}
}

func TestConcurrentDeletesStayBusy(t *testing.T) {
	s := State{Items: items("a", "b")}
	s, _ = Update(s, DeleteRequested{ID: "a"})
	s, _ = Update(s, DeleteConfirmed{})
	s, _ = Update(s, DeleteRequested{ID: "b"})
	s, eff := Update(s, DeleteConfirmed{})
	if !reflect.DeepEqual(eff, []Effect{DeleteTodo{ID: "b"}}) {
		t.Fatalf("unexpected effects %#v", eff)
	}
	if !s.Busy("a") || !s.Busy("b") {
		t.Fatalf("both rows must stay busy: %#v", s.Deleting)
	}

	again, eff := Update(s, DeleteRequested{ID: "a"})
	if eff != nil || again.ConfirmID != "" {
		t.Fatalf("busy row must ignore delete: %#v %#v", again, eff)
	}

	before := s.Deleting
	s, _ = Update(s, DeleteSucceeded{ID: "a"})
	if s.Busy("a") || !s.Busy("b") {
		t.Fatalf("only a should be released: %#v", s.Deleting)
	}
	if !before["a"] {
		t.Fatalf("input state was mutated: %#v", before)
	}
	s, _ = Update(s, DeleteFailed{ID: "b", Err: errors.New("boom")})
	if s.Busy("b") {
		t.Fatalf("b should be released after failure")
	}
}
