package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can map it to a status
// code without inspecting message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindInvalidState
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Error carries a kind alongside the usual error chain.
type Error struct {
	Fkind Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two faults by kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Fkind == e.Fkind && (other.Msg == "" || other.Msg == e.Msg)
	}
	return false
}

func New(kind Kind, msg string) error {
	return &Error{Fkind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Fkind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error, preserving the chain.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Fkind: kind, Msg: msg, Cause: cause}
}

// KindOf reports the kind of the first fault in the chain, KindUnknown if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fkind
	}
	return KindUnknown
}

func Validation(msg string) error   { return New(KindValidation, msg) }
func NotFound(msg string) error     { return New(KindNotFound, msg) }
func Forbidden(msg string) error    { return New(KindForbidden, msg) }
func InvalidState(msg string) error { return New(KindInvalidState, msg) }
func Conflict(msg string) error     { return New(KindConflict, msg) }

// Dependency marks failures of external collaborators (payments, storage,
// identity). These must never be silently swallowed.
func Dependency(msg string, cause error) error {
	return &Error{Fkind: KindDependency, Msg: msg, Cause: cause}
}
