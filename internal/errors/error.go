package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryReactivity Category = "reactivity"
	CategoryScheduler  Category = "scheduler"
	CategoryPatch      Category = "patch"
	CategoryRuntime    Category = "runtime"
	CategoryProtocol   Category = "protocol"
	CategoryServer     Category = "server"
)

// RuntimeError is a structured error with a stable code, a suggestion,
// and an optional wrapped cause.
type RuntimeError struct {
	// Code is a unique error identifier (e.g., "E010").
	Code string

	// Category is the error type (reactivity, scheduler, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Context names the place the error occurred, e.g. the watcher
	// expression or the component that owns the failing callback.
	Context string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		fmt.Fprintf(&b, "%s: ", e.Code)
	}
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RuntimeError) Unwrap() error {
	return e.Wrapped
}

// WithContext attaches a human-readable location ("render of <App>",
// "watcher callback for user.name") to the error.
func (e *RuntimeError) WithContext(format string, args ...any) *RuntimeError {
	e.Context = fmt.Sprintf(format, args...)
	return e
}

// WithDetail overrides the registered detail text.
func (e *RuntimeError) WithDetail(format string, args ...any) *RuntimeError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap attaches an underlying cause.
func (e *RuntimeError) Wrap(err error) *RuntimeError {
	e.Wrapped = err
	return e
}

// New creates a RuntimeError from a registered code.
// Unknown codes produce a generic runtime error carrying the code.
func New(code string) *RuntimeError {
	if tmpl, ok := registry[code]; ok {
		return &RuntimeError{
			Code:       code,
			Category:   tmpl.Category,
			Message:    tmpl.Message,
			Detail:     tmpl.Detail,
			Suggestion: tmpl.Suggestion,
		}
	}
	return &RuntimeError{
		Code:     code,
		Category: CategoryRuntime,
		Message:  "unknown error",
	}
}

// Newf creates a RuntimeError from a registered code with a formatted
// message appended to the template message.
func Newf(code string, format string, args ...any) *RuntimeError {
	e := New(code)
	e.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return e
}
