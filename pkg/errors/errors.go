// Package errors provides structured error types for the graph rewriting
// engine.
//
// This package defines error codes and types that enable:
//   - Consistent handling of rewrite failures across passes and the pipeline
//   - Machine-readable error codes for recovery decisions
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes map onto the recovery policy of the pass driver:
//   - VALIDATION_FAILED: a match failed a semantic check; skipped locally
//   - INVALID_REWIRE: a primitive hit a stale node or port; skipped and logged
//   - INVARIANT_VIOLATION: a graph invariant would break; fatal
//   - INVALID_*, MISSING_*, ATTRIBUTE_*: malformed input
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidRewire, "node %d no longer exists", id)
//	if errors.Is(err, errors.ErrCodeInvalidRewire) {
//	    // skip this handler invocation
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPattern   Code = "INVALID_PATTERN"
	ErrCodeMissingAttribute Code = "MISSING_ATTRIBUTE"
	ErrCodeAttributeType    Code = "ATTRIBUTE_TYPE"

	// Rewrite errors
	ErrCodeInvalidRewire      Code = "INVALID_REWIRE"
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"
	ErrCodeValidation         Code = "VALIDATION_FAILED"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Only the outermost *Error in the chain is consulted.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether the pass driver may skip the failing handler
// invocation and continue the sweep.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeValidation, ErrCodeInvalidRewire:
		return true
	}
	return false
}

// GetCodeOr returns the code of err, or fallback when err carries none.
func GetCodeOr(err error, fallback Code) Code {
	if c := GetCode(err); c != "" {
		return c
	}
	return fallback
}
