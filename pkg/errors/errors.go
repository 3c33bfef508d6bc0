// Package errors provides structured error types for packmesh.
//
// This package defines error codes and types that enable:
//   - Consistent fatal-error reporting from every stage of a model build
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Every failure of a build is fatal; codes identify which invariant broke:
//   - CONFIGURATION: invalid type, value outside its choice set, missing value
//   - GEOMETRY_PROVENANCE: fragments cannot be attributed to container vs. particles
//   - PERIODIC_PAIRING: left/right periodic surfaces cannot be paired one-to-one
//   - UNSUPPORTED_SHAPE: container shape is unknown, or stacking on a cylinder
//   - CLASSIFICATION: a boundary surface matches none of the surface categories
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "container.shape: %q not in {box, cylinder}", s)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read packing %s", path)
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
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeIO            Code = "IO"

	// Modeling errors
	ErrCodeGeometryProvenance Code = "GEOMETRY_PROVENANCE"
	ErrCodePeriodicPairing    Code = "PERIODIC_PAIRING"
	ErrCodeUnsupportedShape   Code = "UNSUPPORTED_SHAPE"
	ErrCodeClassification     Code = "CLASSIFICATION"

	// Kernel and internal errors
	ErrCodeKernel         Code = "KERNEL"
	ErrCodeNotImplemented Code = "NOT_IMPLEMENTED"
	ErrCodeInternal       Code = "INTERNAL_ERROR"
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
// Code prefixes are dropped along the whole cause chain, and a pairing
// failure keeps the path of its diagnostic dump.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	switch e := err.(type) {
	case *PairingError:
		if e.Diagnostic != "" {
			return fmt.Sprintf("%s (diagnostic: %s)", UserMessage(e.Err), e.Diagnostic)
		}
		return UserMessage(e.Err)
	case *Error:
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	var e *Error
	if errors.As(err, &e) {
		return UserMessage(e)
	}
	return err.Error()
}

// PairingError carries the surfaces that could not be paired along one axis.
// It unwraps to an *Error with ErrCodePeriodicPairing.
type PairingError struct {
	Axis       string
	Left       []int
	Right      []int
	Diagnostic string // path of the dumped geometry, if any
	Err        *Error
}

// Error implements the error interface.
func (e *PairingError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s (diagnostic: %s)", e.Err.Error(), e.Diagnostic)
	}
	return e.Err.Error()
}

// Unwrap returns the coded error.
func (e *PairingError) Unwrap() error { return e.Err }
