package migration

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/dbkit/logger"
	"github.com/kbukum/dbkit/session"
)

// Migration describes a single schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// Runner applies ordered migrations tracked in a schema_migrations table.
// Each migration runs inside its own auto-transaction scope, so a failing
// migration rolls back cleanly and leaves the tracking table consistent.
type Runner struct {
	factory    *session.Factory
	log        *logger.Logger
	migrations []Migration
}

// NewRunner creates a runner that applies migrations through the given
// session factory.
func NewRunner(factory *session.Factory, log *logger.Logger) *Runner {
	return &Runner{
		factory: factory,
		log:     log.WithComponent("migration"),
	}
}

// Add registers a migration to be applied. Migrations run in registration
// order.
func (r *Runner) Add(m Migration) {
	r.migrations = append(r.migrations, m)
}

// Run applies all pending migrations in order.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := r.isApplied(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.ID, err)
		}
		if applied {
			r.log.Debug("migration already applied", map[string]interface{}{"id": m.ID})
			continue
		}

		r.log.Info("applying migration", map[string]interface{}{
			"id":          m.ID,
			"description": m.Description,
		})

		err = r.factory.WithTransaction(ctx, func(s *session.Session) error {
			if err := m.Up(s.DB()); err != nil {
				return err
			}
			return s.DB().Exec(
				"INSERT INTO schema_migrations (id, applied_at) VALUES (?, ?)",
				m.ID, time.Now().UTC(),
			).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// Revert rolls back the most recently applied registered migration using
// its Down func. Migrations without a Down func cannot be reverted.
func (r *Runner) Revert(ctx context.Context) error {
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		applied, err := r.isApplied(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.ID, err)
		}
		if !applied {
			continue
		}
		if m.Down == nil {
			return fmt.Errorf("migration %s has no down func", m.ID)
		}

		r.log.Info("reverting migration", map[string]interface{}{"id": m.ID})
		return r.factory.WithTransaction(ctx, func(s *session.Session) error {
			if err := m.Down(s.DB()); err != nil {
				return err
			}
			return s.DB().Exec("DELETE FROM schema_migrations WHERE id = ?", m.ID).Error
		})
	}
	return nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	return r.factory.WithTransaction(ctx, func(s *session.Session) error {
		return s.DB().Exec(
			"CREATE TABLE IF NOT EXISTS schema_migrations (id VARCHAR(255) PRIMARY KEY, applied_at TIMESTAMP)",
		).Error
	})
}

func (r *Runner) isApplied(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.factory.WithSession(ctx, func(s *session.Session) error {
		return s.DB().Raw(
			"SELECT COUNT(*) FROM schema_migrations WHERE id = ?", id,
		).Scan(&count).Error
	})
	return count > 0, err
}
