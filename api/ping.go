package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo/v4"
)

// ping checks store connectivity. On failure the plain text body carries the
// whole error chain and a stack dump; it is meant for operators only.
// The route and the "Cosmos OK"/"Cosmos error" labels are a fixed contract
// kept for existing probes, whichever backend is configured.
func ping(svc TodoService) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		if err := svc.Ping(c.Request().Context()); err != nil {
			m.SetErrorStage("ping")
			m.SetError(err)
			return c.String(http.StatusInternalServerError, describeError(err))
		}
		return c.String(http.StatusOK, "Cosmos OK")
	}
}

func describeError(err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cosmos error: %T - %v\n", err, err)
	for _, inner := range errorChain(err) {
		fmt.Fprintf(&sb, "Inner: %T - %v\n", inner, inner)
	}
	sb.Write(debug.Stack())
	return sb.String()
}

// errorChain lists every error wrapped by err, depth first.
func errorChain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				if inner == nil {
					continue
				}
				out = append(out, inner)
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := x.Unwrap(); inner != nil {
				out = append(out, inner)
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
