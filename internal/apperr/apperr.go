// Package apperr carries the business error kinds shared by every component.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	NotFound            Kind = "NOT_FOUND"
	Insufficient        Kind = "INSUFFICIENT"
	SecurityCodeInvalid Kind = "SECURITY_CODE_INVALID"
	InvalidArgument     Kind = "INVALID_ARGUMENT"
	AlreadyExists       Kind = "ALREADY_EXISTS"
	Internal            Kind = "INTERNAL"
)

// Error is a business failure. Msg names the offending entity and is safe to show to callers.
type Error struct {
	Kind    Kind
	Msg     string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.E(apperr.NotFound)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// E returns a bare kind marker for errors.Is comparisons.
func E(k Kind) *Error { return &Error{Kind: k} }

func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: err}
}

// With returns a copy of e carrying an extra detail.
func (e *Error) With(key string, v any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, dv := range e.Details {
		cp.Details[k] = dv
	}
	cp.Details[key] = v
	return &cp
}

// KindOf reports the kind of err. Untyped errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

func Status(k Kind) int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Insufficient:
		return http.StatusUnprocessableEntity
	case SecurityCodeInvalid:
		return http.StatusForbidden
	case InvalidArgument:
		return http.StatusBadRequest
	case AlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
