package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies business failures so callers can branch without string
// matching. Infrastructure failures stay untyped and are never wrapped here.
type Kind int

const (
	// KindNotFound means the target entity is absent or inactive.
	KindNotFound Kind = iota
	// KindInvalid means an input value is malformed or not allowed.
	KindInvalid
	// KindBlocked means a business rule prevents the operation.
	KindBlocked
	// KindConflict means a uniqueness rule is violated.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindBlocked:
		return "blocked"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a typed business failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a typed business failure.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed business failure with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err and true when err is a business failure.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}

	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)

	return ok && k == kind
}

// IsNotFound reports whether err is a NotFound business failure.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsInvalid reports whether err is an Invalid business failure.
func IsInvalid(err error) bool { return is(err, KindInvalid) }

// IsBlocked reports whether err is a Blocked business failure.
func IsBlocked(err error) bool { return is(err, KindBlocked) }

// IsConflict reports whether err is a Conflict business failure.
func IsConflict(err error) bool { return is(err, KindConflict) }
