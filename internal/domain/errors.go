package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies command-surface failures. Exactly one kind is
// attached to every rejected command so callers can map it to a response
// without string matching.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_error"
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindPreconditionFailed ErrorKind = "precondition_failed"
	KindNotFound           ErrorKind = "not_found"
)

// Error is a command rejection with a machine-readable kind and a
// human-readable reason. Rejections never mutate state.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// InvalidTransitionf builds an InvalidTransition error.
func InvalidTransitionf(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

// PreconditionFailedf builds a PreconditionFailed error.
func PreconditionFailedf(format string, args ...any) error {
	return &Error{Kind: KindPreconditionFailed, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
