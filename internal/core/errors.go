// internal/core/errors.go
package core

import (
	"fmt"
	"time"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// BarError wraps cause with the position of the offending bar so the
// message names the bar index and its timestamp.
func BarError(base *Error, index int, t time.Time, cause error) *Error {
	return WrapError(base, fmt.Errorf("bar %d (%s): %w", index, t.Format(time.RFC3339Nano), cause))
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Input errors
	ErrSchemaInvalid = &Error{Code: "SCHEMA_INVALID", Message: "input schema invalid"}
	ErrDataOrder     = &Error{Code: "DATA_ORDER", Message: "bars not strictly ordered by datetime"}
	ErrNoData        = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrSourceFailed  = &Error{Code: "SOURCE_FAILED", Message: "reading source failed"}

	// Numeric anomalies, reported as warnings and never returned from a run
	ErrDivision = &Error{Code: "DIVISION", Message: "zero or null denominator"}

	// Output errors
	ErrSinkFailed = &Error{Code: "SINK_FAILED", Message: "writing output failed"}
)
