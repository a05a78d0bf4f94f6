// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Common acquisition errors
var (
	ErrNavigationTimeout = errors.New("page never reached ready state")
	ErrNoListingData     = errors.New("no listing data found in page")
	ErrTransport         = errors.New("network error")
	ErrExhaustedRetries  = errors.New("retry budget exhausted")
)

// ErrorCode represents a specific failure condition in the scrape pipeline
type ErrorCode string

const (
	ErrCodeNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	ErrCodeNoListingData     ErrorCode = "NO_LISTING_DATA"
	ErrCodeTransport         ErrorCode = "TRANSPORT_ERROR"
	ErrCodeExhaustedRetries  ErrorCode = "EXHAUSTED_RETRIES"
	ErrCodeTargetMissing     ErrorCode = "TARGET_MISSING"
	ErrCodeMalformedInput    ErrorCode = "MALFORMED_INPUT"
)

// PipelineError wraps errors with the failure taxonomy of the pipeline
type PipelineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *PipelineError) Is(target error) bool {
	if t, ok := target.(*PipelineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(code ErrorCode, message string, err error) *PipelineError {
	return &PipelineError{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// WithRetry marks the error as retryable
func (e *PipelineError) WithRetry() *PipelineError {
	e.Retry = true
	return e
}

// CodeOf extracts the pipeline error code from err, or empty when err does
// not carry one.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
