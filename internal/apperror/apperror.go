// Package apperror classifies the failures a screen can report back to the user.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation is a local, pre-submit field check failure.
	Validation Kind = iota + 1
	// RemoteWrite is a failed create/update/delete against the document store.
	RemoteWrite
	// RemoteRead is a failed lookup or subscription.
	RemoteRead
	// NotFound means a postal code or product id could not be resolved.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case RemoteWrite:
		return "remote_write"
	case RemoteRead:
		return "remote_read"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error pairs a user-facing message with the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

func WrapWrite(err error, message string) *Error { return New(RemoteWrite, err, message) }

func WrapRead(err error, message string) *Error { return New(RemoteRead, err, message) }

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
