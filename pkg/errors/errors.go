// Package errors provides structured error types for brickbook.
//
// Every failure the layout core can surface carries a machine-readable
// [Code], so the CLI and library callers can decide whether a failure is
// local to one part (skip and continue), local to one layout (warn), or
// fatal for the current transaction (roll back).
//
// # Error Codes
//
//   - PARSE_ERROR: malformed model input; the import aborts.
//   - MISSING_PART: a referenced sub-part file could not be resolved; recorded and skipped.
//   - OUT_OF_FRAME: a part or CSI never fits the largest render buffer.
//   - OVERLAP_UNRESOLVABLE: the preview shrink loop hit its scale floor.
//   - NUMBERING_INVARIANT: a mutation left page or step numbers out of sync.
//   - CYCLIC_SUBMODEL: a submodel references itself through its own instances.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown page %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeOutOfFrame, cause, "measure %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Model import errors
	ErrCodeParse       Code = "PARSE_ERROR"
	ErrCodeMissingPart Code = "MISSING_PART"

	// Measurement and layout errors
	ErrCodeOutOfFrame          Code = "OUT_OF_FRAME"
	ErrCodeOverlapUnresolvable Code = "OVERLAP_UNRESOLVABLE"

	// Structural invariant errors
	ErrCodeNumberingInvariant Code = "NUMBERING_INVARIANT"
	ErrCodeCyclicSubmodel     Code = "CYCLIC_SUBMODEL"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Control flow
	ErrCodeCanceled Code = "CANCELED"

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
// It unwraps the error chain looking for an *Error or *ParseError with a
// matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return ErrCodeParse
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

// ParseError reports a malformed line in model input.
type ParseError struct {
	File   string // Model file or MPD section name
	Line   int    // 1-based line number
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s:%d: %s", ErrCodeParse, e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: line %d: %s", ErrCodeParse, e.Line, e.Reason)
}

// Code returns the error code for this error type.
func (e *ParseError) Code() Code {
	return ErrCodeParse
}

// MissingPartError records a sub-part reference that could not be resolved.
// It is informational: the containing part stays usable.
type MissingPartError struct {
	Parent string // Part whose line referenced the missing file
	Name   string // Referenced file name
	Line   int
}

// Error implements the error interface.
func (e *MissingPartError) Error() string {
	return fmt.Sprintf("%s: %s (referenced by %s:%d)", ErrCodeMissingPart, e.Name, e.Parent, e.Line)
}

// Code returns the error code for this error type.
func (e *MissingPartError) Code() Code {
	return ErrCodeMissingPart
}
