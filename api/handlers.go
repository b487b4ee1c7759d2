package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const missingTitleMsg = "Body must include { title: string }"

// Register wires up all API routes on the provided Echo instance. Routes are
// served at the root and, when prefix is non-empty, under prefix as well.
func Register(e *echo.Echo, svc TodoService, logger *log.Logger, prefix string) {
	e.JSONSerializer = SonicSerializer{}

	prefixes := []string{""}
	if prefix != "" && prefix != "/" {
		prefixes = append(prefixes, prefix)
	}
	for _, p := range prefixes {
		g := e.Group(p)
		g.POST("/todos", instrument("create", logger, createTodo(svc)))
		g.GET("/todos", instrument("list", logger, listTodos(svc)))
		g.GET("/todos/:id", instrument("get", logger, getTodo(svc)))
		g.Match([]string{http.MethodPost, http.MethodPatch}, "/todos/:id/done", instrument("mark_done", logger, markDone(svc)))
		g.DELETE("/todos/:id", instrument("delete", logger, deleteTodo(svc)))
		g.GET("/cosmos/ping", instrument("ping", logger, ping(svc)))
		g.GET("/healthz", healthz())
	}
}

type handlerFunc func(c echo.Context, m *requestMetrics) error

func instrument(op string, logger *log.Logger, h handlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		req := c.Request()
		metrics, ctx := newRequestMetrics(req.Context(), logger, op, c.Path(), req.Method)
		c.SetRequest(req.WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()
		return h(c, metrics)
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func createTodo(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		req, err := decodeCreateRequest(c.Request().Body)
		if err != nil {
			m.SetErrorStage("decode")
			m.SetError(err)
			return c.String(http.StatusBadRequest, err.Error())
		}

		start := time.Now()
		item, err := svc.Create(c.Request().Context(), req)
		m.ObserveStore(time.Since(start))
		if err != nil {
			// A duplicate id is not special-cased: it is a store failure.
			return respondError(c, m, err, false)
		}
		m.SetTodoID(item.ID)
		return c.JSON(http.StatusCreated, item)
	}
}

func listTodos(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		start := time.Now()
		items, err := svc.List(c.Request().Context())
		m.ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, m, err, false)
		}
		m.SetItemsReturned(len(items))
		return c.JSON(http.StatusOK, items)
	}
}

func getTodo(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		id := pathID(c)
		m.SetTodoID(id)
		start := time.Now()
		item, err := svc.Get(c.Request().Context(), id)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, m, err, false)
		}
		return c.JSON(http.StatusOK, item)
	}
}

func markDone(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		id := pathID(c)
		m.SetTodoID(id)
		start := time.Now()
		item, err := svc.MarkDone(c.Request().Context(), id)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, m, err, true)
		}
		return c.JSON(http.StatusOK, item)
	}
}

func deleteTodo(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		id := pathID(c)
		m.SetTodoID(id)
		start := time.Now()
		err := svc.Delete(c.Request().Context(), id)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, m, err, false)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// respondError renders err according to the error taxonomy. Conflicts are
// only reported as 409 where the operation can lose a race.
func respondError(c echo.Context, m *requestMetrics, err error, conflict bool) error {
	m.SetError(err)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		m.SetErrorStage("validation")
		return c.String(http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		m.SetErrorStage("not_found")
		return c.NoContent(http.StatusNotFound)
	case conflict && errors.Is(err, domain.ErrConflict):
		m.SetErrorStage("conflict")
		return c.String(http.StatusConflict, "todo was modified concurrently, retry")
	default:
		m.SetErrorStage("storage")
		return c.String(http.StatusInternalServerError, "internal error")
	}
}

func decodeCreateRequest(body io.Reader) (domain.CreateRequest, error) {
	var req domain.CreateRequest
	if body == nil || body == http.NoBody {
		return req, &domain.ValidationError{Msg: missingTitleMsg}
	}
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, createTodoMaxSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, &domain.ValidationError{Msg: missingTitleMsg}
		}
		return req, &domain.ValidationError{Msg: "invalid body: " + missingTitleMsg}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.CreateRequest{}, &domain.ValidationError{Msg: "invalid body: trailing data after JSON object"}
	}
	return req, nil
}

// pathID returns the decoded id. Echo matches on URL.RawPath when it is set,
// leaving the parameter escaped; otherwise the parameter is already decoded.
func pathID(c echo.Context) string {
	raw := c.Param("id")
	if c.Request().URL.RawPath == "" {
		return raw
	}
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}
