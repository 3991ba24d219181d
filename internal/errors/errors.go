// Package errors provides the error taxonomy shared by the solver layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an error so callers can react without parsing messages.
type Kind string

const (
	// KindPrecondition marks malformed input detected before any optimizer call,
	// such as uniform bounds that do not have two or three elements.
	KindPrecondition Kind = "precondition_violation"
	// KindUnsupportedDomain marks a domain the backend cannot express natively.
	// It is reported as a warning and never returned from a successful conversion.
	KindUnsupportedDomain Kind = "unsupported_domain"
	// KindOptimizerFailure marks any failure raised inside the opaque optimizer.
	KindOptimizerFailure Kind = "optimizer_failure"
	// KindTypeMismatch marks a value of the wrong dynamic type.
	KindTypeMismatch Kind = "type_mismatch"
	// KindNotFound marks a lookup of an unknown solver, loss or run.
	KindNotFound Kind = "not_found"
	// KindInvalidInput marks a request or document that could not be decoded.
	KindInvalidInput Kind = "invalid_input"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrPrecondition      = &Error{Kind: KindPrecondition}
	ErrUnsupportedDomain = &Error{Kind: KindUnsupportedDomain}
	ErrOptimizerFailure  = &Error{Kind: KindOptimizerFailure}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// Error represents an error with kind, context and stack trace.
type Error struct {
	// Kind is the taxonomy bucket of the error
	Kind Kind
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// Param is the hyperparameter involved, if any
	Param string
	// Value is the offending value, if any
	Value interface{}
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	} else if e.Kind != "" {
		builder.WriteString(string(e.Kind))
	}

	var ctx []string
	if e.Operation != "" {
		ctx = append(ctx, "operation="+e.Operation)
	}
	if e.Component != "" {
		ctx = append(ctx, "component="+e.Component)
	}
	if e.Param != "" {
		ctx = append(ctx, "param="+e.Param)
	}
	if e.Value != nil {
		ctx = append(ctx, fmt.Sprintf("value=%v", e.Value))
	}
	if len(ctx) > 0 {
		if builder.Len() > 0 {
			builder.WriteString(" (")
			builder.WriteString(strings.Join(ctx, ", "))
			builder.WriteString(")")
		} else {
			builder.WriteString(strings.Join(ctx, ", "))
		}
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind, or the same error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Message == "" && t.Err == nil && t.Kind != "" && t.Kind == e.Kind
}

// WithMessage adds a message to the error.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithParam records the hyperparameter and offending value.
func (e *Error) WithParam(name string, value interface{}) *Error {
	e.Param = name
	e.Value = value
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap wraps err as a new error of the given kind. The original error stays
// reachable through Unwrap and its message is kept in Error().
// If err is nil, Wrap returns nil.
func Wrap(err error, kind Kind, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	if err == nil || target == nil {
		return false
	}
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err's
// type contains an Unwrap method returning error.
// Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
