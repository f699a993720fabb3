// Package errors provides structured error handling for the kite element tree.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindRender indicates a failure while rendering a node.
	KindRender
	// KindLayout indicates a failure while assigning layout regions.
	KindLayout
	// KindDispatch indicates a failure while delivering an event.
	KindDispatch
	// KindConfig indicates a configuration loading or validation error.
	KindConfig
	// KindPlatform indicates a platform backend error.
	KindPlatform
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindContract indicates a violated programming contract.
	KindContract
)

func (k ErrorKind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindLayout:
		return "layout"
	case KindDispatch:
		return "dispatch"
	case KindConfig:
		return "config"
	case KindPlatform:
		return "platform"
	case KindPanic:
		return "panic"
	case KindContract:
		return "contract"
	default:
		return "unknown"
	}
}

// Error represents a structured error raised by the element tree.
type Error struct {
	// Op is the operation that failed (e.g., "core.Node.Layout").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Node describes the tree node involved, if any.
	Node string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [%s] node=%s: %v", e.Op, e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "engine.HandleEvent").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Kind reports KindContract when the panic value is a *ContractError and
// KindPanic otherwise.
func (e *PanicError) Kind() ErrorKind {
	return recoveredKind(e.Value)
}

// ContractError is the panic value used when a caller breaks an API contract,
// such as finishing a hit-test build more often than it pushed. It is never
// returned as an ordinary error; the frame boundary recovers it.
type ContractError struct {
	// Op is the operation whose contract was violated.
	Op string
	// Detail describes the violation.
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Op, e.Detail)
}

// Violation panics with a ContractError.
func Violation(op, format string, args ...any) {
	panic(&ContractError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// BoundaryError represents a panic caught at a frame boundary (render, layout
// or dispatch). The frame in progress is abandoned.
type BoundaryError struct {
	// Phase is the frame phase that failed ("render", "layout", "dispatch").
	Phase string
	// Recovered is the recovered panic value.
	Recovered any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("frame aborted during %s: %v", e.Phase, e.Recovered)
}

// Kind reports KindContract when the frame was aborted by a contract
// violation and KindPanic for any other panic.
func (e *BoundaryError) Kind() ErrorKind {
	return recoveredKind(e.Recovered)
}

// Unwrap exposes a recovered error value, e.g. a *ContractError.
func (e *BoundaryError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

func recoveredKind(r any) ErrorKind {
	if _, ok := r.(*ContractError); ok {
		return KindContract
	}
	return KindPanic
}

// ErrorHandler receives errors reported by the element tree.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleBoundaryError is called when a frame is aborted.
	HandleBoundaryError(err *BoundaryError)
}
