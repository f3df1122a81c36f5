package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
	KindConflict        ErrorKind = "conflict"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindInvalidState    ErrorKind = "invalid_state"
)

// Error is a failure the caller can act on. Handlers map Kind to a status
// code or a websocket error event.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same Kind, so errors.Is(err, ErrNotFound)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Message: "invalid state"}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func invalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func invalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// KindOf returns the kind of a service error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
