package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	// ErrTransport: recognition backend unreachable or non-2xx.
	ErrTransport = errors.New("transport failure")
	// ErrParse: backend response was not valid/expected JSON. Soft failure.
	ErrParse = errors.New("parse failure")
	// ErrValidation: record lacks any identifying field at encode time.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTarget: reconciliation called with a used item or bad slot.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidSource: transfer with identical or empty source slot.
	ErrInvalidSource = errors.New("invalid source")
	// ErrBusy: a transfer is already in flight for this session.
	ErrBusy = errors.New("operation in progress")
	// ErrNotFound: unknown session or item.
	ErrNotFound = errors.New("resource not found")
	// ErrNoContent: recognition returned 200 with nothing usable.
	ErrNoContent = errors.New("no content generated")
	// ErrInvalidInput: malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StatusError carries the upstream HTTP status of a failed backend call so
// callers can surface it unchanged.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// UpstreamStatus extracts the preserved backend status code from err, or 0.
func UpstreamStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
