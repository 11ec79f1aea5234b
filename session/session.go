package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/dbkit/engine"
	dberrors "github.com/kbukum/dbkit/errors"
	"github.com/kbukum/dbkit/logger"
)

// Session is a unit of work pinned to exactly one pooled connection, with
// one open transaction on it. A session belongs to the scope that opened it
// and must not be shared across goroutines.
type Session struct {
	conn *sql.Conn
	tx   *sql.Tx
	db   *gorm.DB
	log  *logger.Logger

	finalized bool
	closed    bool
}

// Factory opens sessions for one execution mode, constructing the mode's
// engine on first use through the registry.
type Factory struct {
	reg  *engine.Registry
	mode engine.Mode
	log  *logger.Logger
}

// NewFactory creates a session factory bound to a registry and mode.
func NewFactory(reg *engine.Registry, mode engine.Mode, log *logger.Logger) *Factory {
	return &Factory{
		reg:  reg,
		mode: mode,
		log:  log.WithComponent("session"),
	}
}

// Mode returns the factory's execution mode.
func (f *Factory) Mode() engine.Mode { return f.mode }

// Engine returns the factory's engine handle, constructing it if needed.
// Exposed so collaborators can introspect the engine (listing tables,
// health) without opening a session.
func (f *Factory) Engine() (*engine.Engine, error) {
	return f.reg.Get(f.mode)
}

// Open draws one pooled connection, begins a transaction on it, and returns
// the Session owning both. The wait for a connection is bounded by the
// engine's acquire timeout; when the pool is saturated and the timeout
// elapses, Open fails with a pool_exhausted error instead of waiting
// forever.
//
// In non-blocking mode the caller's context participates in the wait, so
// cancelling the caller's task abandons the acquire without leaking a
// connection. In blocking mode the context is ignored at this point and
// only the configured timeout bounds the wait.
func (f *Factory) Open(ctx context.Context) (*Session, error) {
	eng, err := f.reg.Get(f.mode)
	if err != nil {
		return nil, err
	}

	base := context.Background()
	if f.mode == engine.ModeNonBlocking && ctx != nil {
		base = ctx
	}

	timeout := eng.AcquireTimeout()
	acquireCtx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	conn, err := eng.Pool().Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dberrors.PoolExhausted(string(f.mode), timeout)
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	txCtx := context.Background()
	if f.mode == engine.ModeNonBlocking && ctx != nil {
		txCtx = ctx
	}

	tx, err := conn.BeginTx(txCtx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	// Bind a fresh GORM handle to the transaction so every statement issued
	// through the session runs on the pinned connection and still flows
	// through the engine's callbacks.
	db := eng.DB().Session(&gorm.Session{Context: txCtx, NewDB: true})
	db.Statement.ConnPool = tx

	return &Session{conn: conn, tx: tx, db: db, log: f.log}, nil
}

// DB returns the GORM handle bound to this session's connection. All
// statements issued through it run inside the session's transaction.
func (s *Session) DB() *gorm.DB { return s.db }

// Commit finalizes the unit of work. Committing a session that was already
// finalized or closed fails with a session_closed error.
func (s *Session) Commit() error {
	if s.closed || s.finalized {
		return dberrors.SessionClosed()
	}
	s.finalized = true
	if err := s.tx.Commit(); err != nil {
		return dberrors.CommitFailed(err)
	}
	return nil
}

// Rollback discards the unit of work. Rolling back an already-finalized
// session is a no-op so cleanup paths can call it unconditionally.
func (s *Session) Rollback() error {
	if s.closed || s.finalized {
		return nil
	}
	s.finalized = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Close finalizes the session if the caller has not — an unfinalized unit
// of work is rolled back, never committed — and returns the connection to
// the pool. Close runs exactly once; later calls are no-ops.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if !s.finalized {
		s.finalized = true
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Warn("rollback on close failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return s.conn.Close()
}
