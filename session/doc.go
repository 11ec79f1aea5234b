// Package session issues units of work bound to a single pooled connection
// and provides the scope managers that guarantee their release.
//
// A Factory serves one execution mode. WithSession yields a bare scoped
// session where the caller decides commit versus rollback; WithTransaction
// commits on normal exit and rolls back on failure, returning the original
// error unchanged. Both guarantee the session is closed — and its
// connection returned to the pool — on every exit path, including panics
// and context cancellation.
package session
