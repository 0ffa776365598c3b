// Package session implements the game session state machine, its repository
// and the chunked image payload store it persists generation results to.
package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies state machine failures so the transport layer can map
// them to status codes without parsing messages.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindInvalidState     ErrorKind = "invalid_state"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindUnavailable      ErrorKind = "unavailable"
)

// Error carries the taxonomy kind plus a human-readable message. The message
// is for display; the kind governs handling.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the taxonomy kind of err, or "" when err is not a session error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func capacityExceeded(format string, args ...any) error {
	return &Error{Kind: KindCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

func unavailable(format string, args ...any) error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...)}
}
