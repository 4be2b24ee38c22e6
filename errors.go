// Package fixexp structured error types for fixed-point and pipeline failures
package fixexp

import (
	"fmt"
)

// ErrorKind represents categories of errors
type ErrorKind int

const (
	// Range errors: a value or result does not fit the fixed-point format
	KindRange ErrorKind = iota
	// Format errors: operands with incompatible formats
	KindFormat
	// Invalid argument errors
	KindInvalidArg
	// Equivalence errors: pipelined output diverged from combinational
	KindEquivalence
)

// Error represents a structured error with context
type Error struct {
	Kind    ErrorKind
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context, e.g. the offending value
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fixexp %s error in %s: %s (caused by: %v)",
			e.Kind.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("fixexp %s error in %s: %s",
		e.Kind.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error kind as a string
func (k ErrorKind) String() string {
	switch k {
	case KindRange:
		return "Range"
	case KindFormat:
		return "Format"
	case KindInvalidArg:
		return "InvalidArgument"
	case KindEquivalence:
		return "Equivalence"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewRangeError creates an error for a result outside the representable range
func NewRangeError(op string, message string, context interface{}) error {
	return &Error{
		Kind:    KindRange,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewFormatError creates an error for mismatched operand formats
func NewFormatError(op string, message string, context interface{}) error {
	return &Error{
		Kind:    KindFormat,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Kind:    KindInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewEquivalenceError creates an error for a pipeline/combinational mismatch
func NewEquivalenceError(op string, message string, context interface{}) error {
	return &Error{
		Kind:    KindEquivalence,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// wrapRangeError annotates an underlying range error with the failing step
func wrapRangeError(op string, step string, err error) error {
	return &Error{
		Kind:    KindRange,
		Op:      op,
		Message: fmt.Sprintf("step %q exceeds representable range", step),
		Err:     err,
	}
}

// IsRangeError checks if an error is a range error
func IsRangeError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindRange
	}
	return false
}

// IsFormatError checks if an error is a format mismatch error
func IsFormatError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindFormat
	}
	return false
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindInvalidArg
	}
	return false
}

// IsEquivalenceError checks if an error is a pipeline equivalence error
func IsEquivalenceError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindEquivalence
	}
	return false
}
