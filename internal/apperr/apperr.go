// Package apperr defines the error taxonomy shared by the booking core and
// its transports. Every error a caller can act on carries a machine-readable
// Kind and a human-readable message.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindNotFound                       Kind = "not_found"
	KindInvalidInput                   Kind = "invalid_input"
	KindDuplicateRegistration          Kind = "duplicate_registration"
	KindDuplicateAppointmentNumber     Kind = "duplicate_appointment_number"
	KindInvalidCapacityState           Kind = "invalid_capacity_state"
	KindInvalidTransition              Kind = "invalid_transition"
	KindResourceTemporarilyUnavailable Kind = "resource_temporarily_unavailable"
	KindDownstreamUnavailable          Kind = "downstream_unavailable"
	KindUnsupported                    Kind = "unsupported"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound                       = &Error{Kind: KindNotFound}
	ErrInvalidInput                   = &Error{Kind: KindInvalidInput}
	ErrDuplicateRegistration          = &Error{Kind: KindDuplicateRegistration}
	ErrDuplicateAppointmentNumber     = &Error{Kind: KindDuplicateAppointmentNumber}
	ErrInvalidCapacityState           = &Error{Kind: KindInvalidCapacityState}
	ErrInvalidTransition              = &Error{Kind: KindInvalidTransition}
	ErrResourceTemporarilyUnavailable = &Error{Kind: KindResourceTemporarilyUnavailable}
	ErrDownstreamUnavailable          = &Error{Kind: KindDownstreamUnavailable}
	ErrUnsupported                    = &Error{Kind: KindUnsupported}
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	// Details lists offending values, e.g. unresolved service ids.
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details ...string) *Error {
	cp := *e
	cp.Details = append(append([]string(nil), e.Details...), details...)
	return &cp
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
