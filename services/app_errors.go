package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a service operation can return. The
// HTTP layer maps kinds to status codes; services never see transport codes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindPermission
	KindConflict
	KindValidation
	KindUpstreamUnavailable
)

// Error is a guard failure with a user-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidStateError(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

func PermissionError(format string, args ...interface{}) *Error {
	return newError(KindPermission, format, args...)
}

func ConflictError(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func UpstreamError(format string, args ...interface{}) *Error {
	return newError(KindUpstreamUnavailable, format, args...)
}

// KindOf extracts the kind from any error in a wrap chain.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}
