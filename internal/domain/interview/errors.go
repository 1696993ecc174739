package interview

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCaseNotFound = errors.New("interview not found")
	ErrForbidden    = errors.New("interview belongs to another patient")
	ErrNotStarted   = errors.New("interview has not been started")
)

// ValidationError rejects malformed input before any reasoning call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidCaseError is returned when a reasoning query is attempted on a case
// that lacks the evidence the backend requires.
type InvalidCaseError struct {
	Reason string
}

func (e *InvalidCaseError) Error() string {
	return "invalid case: " + e.Reason
}

// TransportError wraps a failure talking to the remote reasoning backend:
// network errors, non-2xx responses and undecodable payloads.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reasoner %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reasoner %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError signals backend throttling. RetryAfter is zero when the
// backend did not say how long to wait.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("reasoner %s: rate limited, retry after %s", e.Op, e.RetryAfter)
	}
	return fmt.Sprintf("reasoner %s: rate limited", e.Op)
}

// IsRetryable reports whether the same operation may succeed if repeated
// unchanged.
func IsRetryable(err error) bool {
	var te *TransportError
	var re *RateLimitError
	return errors.As(err, &te) || errors.As(err, &re)
}
