package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "todo-api"
	requestEventName = "todos.request"
)

// requestMetrics collects timings for a single request and emits one span
// and one structured log entry when the request completes.
type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	op            string
	route         string
	method        string
	start         time.Time
	storeDuration time.Duration
	todoID        string
	itemsReturned int
	errorStage    string
	err           error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, op, route, method string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "todos."+op,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", method),
		),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		op:     op,
		route:  route,
		method: method,
		start:  time.Now(),
	}, ctx
}

func (m *requestMetrics) ObserveStore(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.storeDuration = duration
}

func (m *requestMetrics) SetTodoID(id string) {
	m.todoID = id
}

func (m *requestMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// SetError records a failure that was already rendered into the response.
func (m *requestMetrics) SetError(err error) {
	m.err = err
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.err
	}

	if m.span != nil {
		m.span.SetAttributes(attribute.Int("http.status_code", status))
		if m.todoID != "" {
			m.span.SetAttributes(attribute.String("todo.id", m.todoID))
		}
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("todo.error_stage", m.errorStage))
		}
		if status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if err != nil {
				m.span.RecordError(err)
				msg = err.Error()
			}
			m.span.SetStatus(codes.Error, msg)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"op":       m.op,
		"route":    m.route,
		"method":   m.method,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.todoID != "" {
		fields["todo_id"] = m.todoID
	}
	if m.op == "list" {
		fields["items_returned"] = m.itemsReturned
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}

	entry := m.logger.WithFields(fields)
	if status >= http.StatusInternalServerError {
		entry.Error(requestEventName)
		return
	}
	entry.Info(requestEventName)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
