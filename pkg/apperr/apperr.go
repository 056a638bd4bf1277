// Package apperr defines the error kinds surfaced to API clients.
package apperr

import "errors"

// Kind classifies a user-facing failure.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Unauthorized
	Forbidden
	Conflict
	Dependency
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case Dependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error carries a kind and a message safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns an error whose message is shown verbatim to the client.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches an underlying cause while keeping the client message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind and message so wrapped copies compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf reports the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Message returns the client message of err and whether one exists.
func Message(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	return "", false
}
