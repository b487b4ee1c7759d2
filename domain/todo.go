package domain

import (
	"strings"

	"github.com/google/uuid"
)

// PartitionKeyField is the document field the store routes items by.
const PartitionKeyField = "partitionKey"

// TodoItem represents a single todo as exposed by the API and persisted in the store.
type TodoItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	IsDone       bool   `json:"isDone"`
	PartitionKey string `json:"partitionKey"`
}

// Versioned pairs an item with the store ETag it was read at.
type Versioned struct {
	Item TodoItem `json:"item"`
	ETag string   `json:"etag,omitempty"`
}

// CreateRequest is the decoded body of a create call. Pointer fields
// distinguish absent values from zero values.
type CreateRequest struct {
	ID           *string `json:"id,omitempty"`
	Title        *string `json:"title"`
	IsDone       *bool   `json:"isDone,omitempty"`
	PartitionKey *string `json:"partitionKey,omitempty"`
}

// NewTodoItem validates the request and fills server-side defaults.
// newID is used when the request carries no id; nil means uuid.NewString.
func NewTodoItem(req CreateRequest, newID func() string) (TodoItem, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return TodoItem{}, &ValidationError{Msg: "Body must include { title: string }"}
	}
	if newID == nil {
		newID = uuid.NewString
	}

	item := TodoItem{Title: *req.Title}
	if req.ID != nil && *req.ID != "" {
		item.ID = *req.ID
	} else {
		item.ID = newID()
	}
	if strings.ContainsAny(item.ID, `/\?#`) {
		return TodoItem{}, &ValidationError{Msg: "id must not contain '/', '\\', '?' or '#'"}
	}

	item.PartitionKey = item.ID
	if req.PartitionKey != nil && *req.PartitionKey != "" {
		if *req.PartitionKey != item.ID {
			return TodoItem{}, &ValidationError{Msg: "partitionKey must equal id"}
		}
		item.PartitionKey = *req.PartitionKey
	}
	if req.IsDone != nil {
		item.IsDone = *req.IsDone
	}
	return item, nil
}
