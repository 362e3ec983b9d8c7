package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is; the wrapped
// message names the specific violated precondition.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error pairs a kind with a caller-facing message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func notFound(msg string) error   { return &Error{kind: ErrNotFound, msg: msg} }
func badRequest(msg string) error { return &Error{kind: ErrBadRequest, msg: msg} }
func forbidden(msg string) error  { return &Error{kind: ErrForbidden, msg: msg} }

func badRequestf(format string, args ...any) error {
	return &Error{kind: ErrBadRequest, msg: fmt.Sprintf(format, args...)}
}
