// Package errs defines the error kinds shared by the domain services and the
// transports that render them.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to map it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error. Sentinels are declared as *Error values so
// errors.Is keeps working through fmt.Errorf wrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// Validationf returns a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Permission returns a permission error.
func Permission(msg string) *Error { return &Error{Kind: KindPermission, Message: msg} }

// Permissionf returns a permission error with a formatted message.
func Permissionf(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an authentication error.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Conflict returns a conflict error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
