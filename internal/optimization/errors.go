package optimization

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySpace is returned when a search space has no reachable leaf.
	ErrEmptySpace = errors.New("search space has no selectable point")
	// ErrInvalidBudget is returned for a non-positive evaluation budget.
	ErrInvalidBudget = errors.New("evaluation budget must be positive")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = e.Component + ": " + e.Op
	case e.Component != "":
		prefix = e.Component
	default:
		prefix = e.Op
	}

	msg := e.Message
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WrapError wraps err with the operation and component it came from.
// If err is nil, WrapError returns nil.
func WrapError(err error, component, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Message:   message,
		Op:        op,
		Component: component,
		Err:       err,
	}
}
