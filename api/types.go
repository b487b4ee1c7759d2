package api

import (
	"context"

	"todo-api/domain"
)

// createTodoMaxSize bounds the create request body.
const createTodoMaxSize = 64 * 1024 // 64 KiB

// TodoService abstracts the todo use cases for handlers.
type TodoService interface {
	Create(ctx context.Context, req domain.CreateRequest) (domain.TodoItem, error)
	List(ctx context.Context) ([]domain.TodoItem, error)
	Get(ctx context.Context, id string) (domain.TodoItem, error)
	MarkDone(ctx context.Context, id string) (domain.TodoItem, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
