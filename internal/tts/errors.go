package tts

import (
	"context"
	"errors"
	"fmt"
)

// Common synthesis errors
var (
	// ErrNoEngineConfigured indicates no engine has been selected
	ErrNoEngineConfigured = errors.New("no TTS engine configured")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEmptyText is returned when asked to synthesize nothing
	ErrEmptyText = errors.New("text cannot be empty")
)

// ErrorCode identifies the class of a synthesis failure.
type ErrorCode string

const (
	// Transient codes, retried with backoff.
	ErrorCodeEngineTimeout   ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeEngineTransient ErrorCode = "ENGINE_TRANSIENT"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"

	// Permanent codes.
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
)

// SynthesisError is a synthesis failure with a classification code.
type SynthesisError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// NewSynthesisError creates a classified synthesis error.
func NewSynthesisError(code ErrorCode, message string, cause error) *SynthesisError {
	return &SynthesisError{Code: code, Message: message, Cause: cause}
}

// IsRetryable returns true if the operation can be retried
func (e *SynthesisError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineTimeout,
		ErrorCodeEngineTransient,
		ErrorCodeRateLimited:
		return true
	default:
		return false
	}
}

// IsFatal returns true if no later attempt in this run can succeed
func (e *SynthesisError) IsFatal() bool {
	return e.Code == ErrorCodeEngineUnavailable
}

// IsRetryable reports whether err is a transient synthesis failure.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *SynthesisError
	return errors.As(err, &se) && se.IsRetryable()
}
