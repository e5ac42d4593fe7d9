// Package apperr defines the error taxonomy shared by the booking core and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindSlotUnavailable
	KindInvalidState
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindSlotUnavailable:
		return "slot_unavailable"
	case KindInvalidState:
		return "invalid_state"
	case KindUpstream:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Error carries a stable machine code next to a human message. Err is the
// underlying cause and is never shown to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors of the same kind and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Code: kind.String(), Message: msg, Err: err}
}

func Validation(msg string) *Error { return newError(KindValidation, msg, nil) }

func NotFound(msg string) *Error { return newError(KindNotFound, msg, nil) }

func Forbidden(msg string) *Error { return newError(KindForbidden, msg, nil) }

func Unauthenticated(msg string) *Error { return newError(KindUnauthenticated, msg, nil) }

func InvalidState(msg string) *Error { return newError(KindInvalidState, msg, nil) }

func Upstream(msg string, err error) *Error { return newError(KindUpstream, msg, err) }

func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// ErrSlotUnavailable is returned to the losing writer of a concurrent slot
// claim. Callers should pick another slot rather than retry the same one.
var ErrSlotUnavailable = &Error{Kind: KindSlotUnavailable, Code: KindSlotUnavailable.String(), Message: "Slot unavailable"}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
