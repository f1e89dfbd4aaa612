package errors

import (
	"errors"
	"fmt"
)

// Hard failure codes. Soft conditions (degenerate comparisons, negative
// efficiency gain, high design effect, detected periodicity) are surfaced
// as result fields, never as errors.
const (
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeInvalidSampleSize = "INVALID_SAMPLE_SIZE"
	CodeStratumExhausted  = "STRATUM_EXHAUSTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context, preserving its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	var appErr *AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// HasCode checks whether any error in the chain carries the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
