package storage

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"todo-api/domain"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "not found", err: &azcore.ResponseError{StatusCode: http.StatusNotFound}, target: domain.ErrNotFound},
		{name: "conflict", err: &azcore.ResponseError{StatusCode: http.StatusConflict}, target: domain.ErrConflict},
		{name: "precondition", err: &azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}, target: domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate("op", tt.err)
			if !errors.Is(got, tt.target) {
				t.Fatalf("expected %v in chain, got %v", tt.target, got)
			}
			var respErr *azcore.ResponseError
			if !errors.As(got, &respErr) {
				t.Fatalf("expected sdk error to stay in chain")
			}
		})
	}
}

func TestTranslatePassesOtherErrors(t *testing.T) {
	if translate("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	base := &azcore.ResponseError{StatusCode: http.StatusServiceUnavailable}
	got := translate("op", base)
	if errors.Is(got, domain.ErrNotFound) || errors.Is(got, domain.ErrConflict) {
		t.Fatalf("unexpected domain mapping for 503: %v", got)
	}
	if !errors.Is(got, base) {
		t.Fatalf("expected wrapped error, got %v", got)
	}
}

func TestHasErrorCode(t *testing.T) {
	err := &azcore.ResponseError{StatusCode: http.StatusConflict, ErrorCode: "QueueAlreadyExists"}
	if !hasErrorCode(err, "QueueAlreadyExists") || !hasStatus(err, http.StatusConflict) {
		t.Fatalf("expected match")
	}
	if hasErrorCode(errors.New("plain"), "QueueAlreadyExists") {
		t.Fatalf("plain errors never match")
	}
}
