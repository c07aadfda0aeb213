package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable, client-visible category of a failure.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindDuplicateItem      Kind = "duplicate_item"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInvalidQuantity    Kind = "invalid_quantity"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInternal           Kind = "internal"
)

// Error is the typed failure returned by every layer below the HTTP handlers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "email already registered"}
	ErrDuplicateItem      = &Error{Kind: KindDuplicateItem, Message: "item already present"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrInvalidQuantity    = &Error{Kind: KindInvalidQuantity, Message: "quantity must stay above zero"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid or expired token"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable, Message: "service unavailable"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of a typed error without the wrapped cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
