package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmatchedOpen is matched by errors.Is for a '[' with no closing bracket.
	ErrUnmatchedOpen = errors.New("matching ']' not found")
	// ErrUnmatchedClose is matched by errors.Is for a ']' with no opening bracket.
	ErrUnmatchedClose = errors.New("matching '[' not found")
)

// InterpreterError is the only fatal error the engine raises. It terminates
// the run that produced it and nothing else.
type InterpreterError struct {
	Msg string
	// IP is the position of the bracket whose partner could not be found.
	IP  int
	err error
}

func newUnmatchedOpen(ip int) *InterpreterError {
	return &InterpreterError{Msg: ErrUnmatchedOpen.Error(), IP: ip, err: ErrUnmatchedOpen}
}

func newUnmatchedClose(ip int) *InterpreterError {
	return &InterpreterError{Msg: ErrUnmatchedClose.Error(), IP: ip, err: ErrUnmatchedClose}
}

func (e *InterpreterError) Error() string {
	return e.Msg
}

// Detail renders the message together with the offending position.
func (e *InterpreterError) Detail() string {
	return fmt.Sprintf("%s (bracket at ip %d)", e.Msg, e.IP)
}

func (e *InterpreterError) Unwrap() error {
	return e.err
}
