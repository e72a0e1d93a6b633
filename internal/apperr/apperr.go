// Package apperr carries the typed failures that handlers translate into HTTP
// responses. Anything that is not an *Error is treated as an internal error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application failure with the status it maps to, a message safe
// to show to clients and, for validation failures, the itemized problems.
type Error struct {
	Status  int
	Message string
	Items   []string
	parent  error
}

// New initializes an Error.
func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func (e *Error) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("status=%d, msg=%s, parent=(%v)", e.Status, e.Message, e.parent)
	}
	return fmt.Sprintf("status=%d, msg=%s", e.Status, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.parent }

// Wrap returns a copy of e that records parent as its cause.
func (e *Error) Wrap(parent error) *Error {
	cp := *e
	cp.parent = parent
	return &cp
}

// Is matches errors of the same status and message so that predefined values
// can be compared with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }

// Validation reports schema violations; each item is one human readable problem.
func Validation(items ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Validation error", Items: items}
}

// From extracts an *Error from err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
