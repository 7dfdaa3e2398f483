// Package apperr defines the error kinds shared by every engine operation.
// Callers match kinds with errors.Is, e.g. errors.Is(err, apperr.ErrConflict).
package apperr

import (
	"errors"
	"fmt"
)

// Base kinds.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrDuplicate  = errors.New("duplicate entity")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
	ErrForbidden  = errors.New("forbidden")
)

// Error carries the kind, the failing operation and an optional cause.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
	// Fields maps offending input fields to messages for validation errors.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against the kind as well as the wrapped cause.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func New(kind error, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind error, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Validation(op, format string, args ...any) *Error {
	return New(ErrValidation, op, fmt.Sprintf(format, args...))
}

func NotFound(op, what string) *Error {
	return New(ErrNotFound, op, what+" not found")
}

func Duplicate(op, what string) *Error {
	return New(ErrDuplicate, op, what+" already exists")
}

// KindOf reports the base kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrDuplicate, ErrNotFound, ErrForbidden, ErrStore} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
