package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrBusy              = errors.New("busy")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

// Error is a business error with the title/cause pair that the HTTP boundary
// renders as {title: cause} inside the error map. Kind is one of the sentinel
// errors above so callers can branch with errors.Is.
type Error struct {
	Kind  error
	Title string
	Cause string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFound(cause string) *Error {
	return &Error{Kind: ErrNotFound, Title: "not found error", Cause: cause}
}

func Duplicate(cause string) *Error {
	return &Error{Kind: ErrDuplicate, Title: "Duplicate Error", Cause: cause}
}

func OutOfStock() *Error {
	return &Error{Kind: ErrOutOfStock, Title: "out of stock", Cause: "stock is out cannot perform withdrawal"}
}

func InsufficientStock() *Error {
	return &Error{Kind: ErrInsufficientStock, Title: "limited stock", Cause: "insufficient amount of stock"}
}

func Conflict(cause string) *Error {
	return &Error{Kind: ErrConflict, Title: "conflict", Cause: cause}
}

func Busy(cause string) *Error {
	return &Error{Kind: ErrBusy, Title: "busy", Cause: cause}
}

func DuplicateRequest() *Error {
	return &Error{Kind: ErrDuplicateRequest, Title: "duplicate request", Cause: "request was already processed"}
}

// ValidationError carries per-field messages, one entry per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}
