package errors

// ErrorCode is a machine-readable identifier for a class of dbkit failure.
type ErrorCode string

const (
	// ErrCodeUnsupportedScheme indicates a connection URI whose scheme is
	// outside the translation table.
	ErrCodeUnsupportedScheme ErrorCode = "unsupported_scheme"

	// ErrCodeEngineConstruction indicates a pooled engine could not be built
	// (bad connection parameters, unreachable database).
	ErrCodeEngineConstruction ErrorCode = "engine_construction"

	// ErrCodePoolExhausted indicates a connection acquire timed out because
	// every pooled connection was in use.
	ErrCodePoolExhausted ErrorCode = "pool_exhausted"

	// ErrCodeCommitFailed indicates the commit at the end of an
	// auto-transaction scope failed.
	ErrCodeCommitFailed ErrorCode = "commit_failed"

	// ErrCodeSessionClosed indicates a session was used after it was
	// finalized or closed.
	ErrCodeSessionClosed ErrorCode = "session_closed"
)

// IsRetryableCode reports whether operations failing with this code are
// reasonable to retry. Scheme and session-lifecycle failures are caller
// bugs, not transient conditions.
func IsRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodePoolExhausted, ErrCodeEngineConstruction:
		return true
	}
	return false
}
