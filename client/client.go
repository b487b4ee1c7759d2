// Package client is the HTTP binding of the todo API together with the view
// state machine used by front ends.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"todo-api/domain"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("todo not found")

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed: %d", e.Method, e.Path, e.Code)
}

// Client wraps http.Client with the todo API calls.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a Client for the API rooted at baseURL, e.g. http://localhost:8080/api.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// List returns all items.
func (c *Client) List(ctx context.Context) ([]domain.TodoItem, error) {
	var items []domain.TodoItem
	if err := c.do(ctx, http.MethodGet, "/todos", nil, http.StatusOK, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.TodoItem{}
	}
	return items, nil
}

// Create posts a new item with the given title.
func (c *Client) Create(ctx context.Context, title string) (domain.TodoItem, error) {
	var item domain.TodoItem
	body := domain.CreateRequest{Title: &title}
	err := c.do(ctx, http.MethodPost, "/todos", body, http.StatusCreated, &item)
	return item, err
}

// Get fetches a single item.
func (c *Client) Get(ctx context.Context, id string) (domain.TodoItem, error) {
	var item domain.TodoItem
	err := c.do(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, http.StatusOK, &item)
	return item, err
}

// MarkDone marks the item as done.
func (c *Client) MarkDone(ctx context.Context, id string) (domain.TodoItem, error) {
	var item domain.TodoItem
	err := c.do(ctx, http.MethodPost, "/todos/"+url.PathEscape(id)+"/done", nil, http.StatusOK, &item)
	return item, err
}

// Delete removes the item. Both 200 and 204 count as success.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusOK {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(msg)}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNotFound, se)
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
