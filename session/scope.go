package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/kbukum/dbkit/session"

// WithSession runs fn with a bare scoped session: the session is always
// closed on exit, but the commit/rollback decision stays in the caller's
// hands. A unit of work left unfinalized when the scope exits is rolled
// back as the connection is released.
func (f *Factory) WithSession(ctx context.Context, fn func(*Session) error) error {
	s, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// WithTransaction runs fn inside an auto-transaction scope: commit on
// normal return, rollback on error or panic. The caller's error is returned
// unchanged — never wrapped — so the true cause stays visible; panics
// resume after the rollback. The unit of work is finalized exactly once on
// every exit path.
func (f *Factory) WithTransaction(ctx context.Context, fn func(*Session) error) error {
	s, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	spanCtx := ctx
	if spanCtx == nil {
		spanCtx = context.Background()
	}
	_, span := otel.Tracer(tracerName).Start(spanCtx, "dbkit.transaction")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			_ = s.Rollback()
			f.log.Error("transaction rolled back after panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		span.RecordError(err)
		if rbErr := s.Rollback(); rbErr != nil {
			f.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	if err := s.Commit(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
