package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message. If args are given, the
// message is treated as a format string.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(msg)
	}
	return fmt.Errorf(msg, args...)
}

// contextError annotates an error with a short description of what was being
// attempted when it occurred.
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` so that its message is prefixed by `context`.
// Returns nil if `err` is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// users.
type FriendlyError struct {
	format string
	args   []interface{}
}

// NewFriendlyError creates a FriendlyError.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{format: format, args: args}
}

func (err FriendlyError) Error() string {
	return err.FriendlyMessage()
}

// FriendlyMessage returns the message to show the user.
func (err FriendlyError) FriendlyMessage() string {
	return fmt.Sprintf(err.format, err.args...)
}

type friendlyError interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the friendly message of the first error in the
// chain that has one. Otherwise, it returns the full error message.
func GetPrintableMessage(err error) string {
	for curr := err; curr != nil; curr = goerrors.Unwrap(curr) {
		if friendly, ok := curr.(friendlyError); ok {
			return friendly.FriendlyMessage()
		}
	}
	return err.Error()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}
