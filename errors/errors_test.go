package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

// TestUnsupportedScheme_Code carries the unsupported_scheme code and names
// the scheme.
func TestUnsupportedScheme_Code(t *testing.T) {
	err := UnsupportedScheme("ftp")
	if err.Code != ErrCodeUnsupportedScheme {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeUnsupportedScheme)
	}
	if err.Retryable {
		t.Error("unsupported scheme must not be retryable")
	}
	if err.Details["scheme"] != "ftp" {
		t.Errorf("Details[scheme] = %v, want ftp", err.Details["scheme"])
	}
}

// TestPoolExhausted_Retryable marks pool exhaustion retryable.
func TestPoolExhausted_Retryable(t *testing.T) {
	err := PoolExhausted("blocking", 30*time.Second)
	if !err.Retryable {
		t.Error("pool exhaustion must be retryable")
	}
	if !IsPoolExhausted(err) {
		t.Error("IsPoolExhausted = false, want true")
	}
}

// TestEngineConstruction_Unwrap exposes the underlying cause.
func TestEngineConstruction_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := EngineConstruction("blocking", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

// TestCodeOf_WrappedError extracts the code through fmt.Errorf wrapping.
func TestCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("open session: %w", PoolExhausted("nonblocking", time.Second))
	if got := CodeOf(wrapped); got != ErrCodePoolExhausted {
		t.Errorf("CodeOf = %q, want %q", got, ErrCodePoolExhausted)
	}
}

// TestCodeOf_ForeignError returns the empty code for non-dbkit errors.
func TestCodeOf_ForeignError(t *testing.T) {
	if got := CodeOf(stderrors.New("boom")); got != "" {
		t.Errorf("CodeOf = %q, want empty", got)
	}
}

// TestIsRetryable_ConnectionError treats connection-level failures as
// retryable even without a dbkit code.
func TestIsRetryable_ConnectionError(t *testing.T) {
	if !IsRetryable(stderrors.New("driver: bad connection")) {
		t.Error("IsRetryable = false, want true for bad connection")
	}
	if IsRetryable(stderrors.New("syntax error near SELECT")) {
		t.Error("IsRetryable = true, want false for syntax error")
	}
}

// TestIsConnectionError_Nil handles nil input.
func TestIsConnectionError_Nil(t *testing.T) {
	if IsConnectionError(nil) {
		t.Error("IsConnectionError(nil) = true, want false")
	}
}

// TestSessionClosed_NotRetryable marks session misuse as a caller bug.
func TestSessionClosed_NotRetryable(t *testing.T) {
	if SessionClosed().Retryable {
		t.Error("session_closed must not be retryable")
	}
}

// TestError_WithDetail attaches context to an existing error.
func TestError_WithDetail(t *testing.T) {
	err := New(ErrCodeCommitFailed, "failed").WithDetail("table", "records")
	if err.Details["table"] != "records" {
		t.Errorf("Details[table] = %v, want records", err.Details["table"])
	}
}
