// Package common defines shared constants, sentinel errors and the tagged
// error type used across gophidentity layers. Callers should use errors.Is
// for sentinels and KindOf for tagged errors.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid, expired or forged token).
	ErrInvalidToken = errors.New("invalid token")
)

// Kind classifies a failure. The set is closed; every boundary that turns an
// error into a response switches over all of it.
type Kind int

const (
	KindDependency Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindDependency:
		return "dependency"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Message is safe to show to callers; Err
// carries the underlying cause and is only surfaced in diagnostics.
type Error struct {
	Kind      Kind
	Message   string
	Field     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input for field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// Conflict reports a collision on a unique field.
func Conflict(field string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: field + " already in use", Err: ErrorAlreadyExists}
}

// Unauthenticated is the single generic authentication rejection. The message
// never says which check failed.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Forbidden reports an authenticated caller lacking role or ownership.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound reports an absent target resource.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found", Err: ErrorNotFound}
}

// Dependency wraps a store or signing backend failure.
func Dependency(err error, retryable bool) *Error {
	return &Error{Kind: KindDependency, Message: "internal error", Retryable: retryable, Err: err}
}

// KindOf classifies err. Errors that are not *Error are dependency failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// AsError returns err as *Error, wrapping unclassified errors as dependency
// failures.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Dependency(err, false)
}
