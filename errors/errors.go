// Package errors provides the structured error taxonomy for dbkit.
// Every failure surfaced by the kit carries a machine-readable code and a
// retryable flag so callers can decide between backing off and giving up.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Error is the unified dbkit error type.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// UnsupportedScheme reports a connection URI scheme the translator does not
// recognize. Fatal, never retried.
func UnsupportedScheme(scheme string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedScheme,
		Message: fmt.Sprintf("unsupported connection URI scheme %q", scheme),
		Details: map[string]any{"scheme": scheme},
	}
}

// EngineConstruction reports a failed engine build for the given mode. The
// registry stays retryable after this error.
func EngineConstruction(mode string, cause error) *Error {
	return &Error{
		Code:      ErrCodeEngineConstruction,
		Message:   fmt.Sprintf("failed to construct %s engine", mode),
		Retryable: true,
		Details:   map[string]any{"mode": mode},
		Cause:     cause,
	}
}

// PoolExhausted reports that no pooled connection became available within
// the acquire timeout. Callers may retry with backoff.
func PoolExhausted(mode string, timeout time.Duration) *Error {
	return &Error{
		Code:      ErrCodePoolExhausted,
		Message:   fmt.Sprintf("connection pool exhausted after waiting %s", timeout),
		Retryable: true,
		Details:   map[string]any{"mode": mode, "timeout": timeout.String()},
	}
}

// CommitFailed reports a failed commit at the end of an auto-transaction
// scope.
func CommitFailed(cause error) *Error {
	return &Error{
		Code:    ErrCodeCommitFailed,
		Message: "failed to commit transaction",
		Cause:   cause,
	}
}

// SessionClosed reports use of a session after it was finalized or closed.
func SessionClosed() *Error {
	return &Error{
		Code:    ErrCodeSessionClosed,
		Message: "session already finalized or closed",
	}
}

// --- Inspection helpers ---

// CodeOf extracts the ErrorCode from err, or "" if err is not a dbkit error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnsupportedScheme reports whether err is an unsupported-scheme error.
func IsUnsupportedScheme(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedScheme
}

// IsEngineConstruction reports whether err is an engine-construction error.
func IsEngineConstruction(err error) bool {
	return CodeOf(err) == ErrCodeEngineConstruction
}

// IsPoolExhausted reports whether err is a pool-exhausted error.
func IsPoolExhausted(err error) bool {
	return CodeOf(err) == ErrCodePoolExhausted
}

// IsRetryable reports whether err is a dbkit error marked retryable, or a
// connection-level error that might resolve on retry.
func IsRetryable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable
	}
	return IsConnectionError(err)
}

// IsConnectionError checks if a database error is a connection error that
// might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
		"invalid connection",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
