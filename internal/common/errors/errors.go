// Package apperrors provides the standardized error taxonomy for the menu
// intelligence pipeline.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Code is a standardized internal error code.
type Code string

const (
	// Caller errors, never retried.
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotFound          Code = "NOT_FOUND"

	// Upstream errors, retried internally before surfacing.
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeTransientUpstream Code = "TRANSIENT_UPSTREAM"

	// All configured content providers exhausted.
	CodeGenerationFailed Code = "GENERATION_FAILED"

	CodeStorageFailed Code = "STORAGE_FAILED"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Error is a structured application error.
type Error struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a non-retryable caller error.
func NewInvalidRequest(details string) *Error {
	return &Error{
		Code:      CodeInvalidRequest,
		Message:   "Request rejected by upstream or caller input invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimited creates a retryable rate-limit error.
func NewRateLimited(details string) *Error {
	return &Error{
		Code:      CodeRateLimited,
		Message:   "Upstream rate limit exhausted",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransientUpstream creates a retryable upstream error.
func NewTransientUpstream(service string, err error) *Error {
	return &Error{
		Code:      CodeTransientUpstream,
		Message:   fmt.Sprintf("Transient failure from '%s'", service),
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGenerationFailed creates an error for exhausted content providers.
func NewGenerationFailed(capability string, err error) *Error {
	return &Error{
		Code:      CodeGenerationFailed,
		Message:   fmt.Sprintf("All providers failed for capability '%s'", capability),
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidTransition creates a review state machine misuse error.
func NewInvalidTransition(recordID, details string) *Error {
	return &Error{
		Code:      CodeInvalidTransition,
		Message:   "Record is not pending review",
		Details:   fmt.Sprintf("recordId: %s, %s", recordID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFound creates a missing-entity error.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("%s not found", kind),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailed creates a retryable storage error.
func NewStorageFailed(op string, err error) *Error {
	return &Error{
		Code:      CodeStorageFailed,
		Message:   fmt.Sprintf("Storage operation '%s' failed", op),
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternal wraps an unexpected error.
func NewInternal(err error) *Error {
	return &Error{
		Code:      CodeInternal,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf extracts the taxonomy code from any error, defaulting to
// INTERNAL_ERROR for foreign errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// RetryCount returns how many internal retries a code earns before it is
// surfaced.
func RetryCount(code Code) int {
	switch code {
	case CodeRateLimited, CodeTransientUpstream, CodeStorageFailed:
		return 3
	default:
		return 0
	}
}

// Retryable reports whether err should be retried internally.
func Retryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
