package domain

import "errors"

// ErrNotFound indicates that no item exists for the addressed id.
var ErrNotFound = errors.New("todo not found")

// ErrConflict indicates that the store rejected a write, either because the
// id is already taken or because the item changed since it was read.
var ErrConflict = errors.New("todo conflict")

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
