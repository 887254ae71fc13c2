// Package apperr defines the failure kinds shared by the validation,
// storage and booking layers. Handlers translate a Kind into an HTTP
// status; everything below the handler only creates and wraps them.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	// SystemFailure is the zero value so that unclassified errors are
	// treated as storage/infrastructure failures.
	SystemFailure Kind = iota
	// NullReference means a required argument (seat or account) was absent.
	NullReference
	// OutOfRange means the seat coordinates are outside the hall.
	OutOfRange
	// NotFound means a requested collection or record came back empty.
	NotFound
	// Unavailable means the seat is already occupied.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case NullReference:
		return "null_reference"
	case OutOfRange:
		return "out_of_range"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "system_failure"
	}
}

// Error is a classified failure. Err is the optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind without a cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies cause under kind. A nil cause yields nil.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// System wraps a storage or infrastructure error. Already classified
// errors pass through untouched so business kinds survive the wrap.
func System(cause error, msg string) error {
	if cause == nil {
		return nil
	}
	var ae *Error
	if errors.As(cause, &ae) {
		return cause
	}
	return &Error{Kind: SystemFailure, Msg: msg, Err: cause}
}

// KindOf reports the kind of err. Unclassified errors are SystemFailure.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return SystemFailure
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
