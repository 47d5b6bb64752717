package apperror

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrReference = errors.New("reference error")
	ErrIOFailure = errors.New("io failure")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid request")
)

// Error carries one of the kinds above together with the failing operation
// and the underlying cause, if any.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Reference(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrReference, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Conflict(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Invalid(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalid, Op: op, Message: fmt.Sprintf(format, args...)}
}

// IOFailure wraps a filesystem or encoding error. A nil err yields nil.
func IOFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrIOFailure, Op: op, Err: err}
}
