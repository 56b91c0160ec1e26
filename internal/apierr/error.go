// Package apierr defines the error taxonomy returned by the carrier API:
// a small set of kinds that select the HTTP status, stable numeric subcodes
// within each kind, localized messages and documentation references.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an API error. It determines the HTTP status.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code identifies one error condition: its kind, its number within the
// kind, and the catalog message ID.
type Code struct {
	Kind      Kind
	Number    int
	MessageID string
}

// Error is the error value returned by domain operations. Callers
// distinguish request problems (KindBadRequest) from missing entities
// (KindNotFound) by Kind, not by inspecting the number.
type Error struct {
	Code Code
	Err  error
}

// New returns an *Error for c.
func New(c Code) *Error {
	return &Error{Code: c}
}

// Wrap returns an *Error for c that carries an underlying cause.
func Wrap(c Code, err error) *Error {
	return &Error{Code: c, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d/%d): %v", e.Code.MessageID, e.Code.Kind.Status(), e.Code.Number, e.Err)
	}
	return fmt.Sprintf("%s (%d/%d)", e.Code.MessageID, e.Code.Kind.Status(), e.Code.Number)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the kind of e.
func (e *Error) Kind() Kind { return e.Code.Kind }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err is not an
// *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Code.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error with code c.
func Is(err error, c Code) bool {
	e, ok := As(err)
	return ok && e.Code.Kind == c.Kind && e.Code.Number == c.Number
}
