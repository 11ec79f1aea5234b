package engine

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/dbkit/config"
	"github.com/kbukum/dbkit/dsn"
	dberrors "github.com/kbukum/dbkit/errors"
	"github.com/kbukum/dbkit/logger"
)

// Mode selects the execution regime an engine serves.
type Mode string

const (
	// ModeBlocking executes on the calling goroutine; the caller's context
	// is not consulted during connection acquisition.
	ModeBlocking Mode = "blocking"

	// ModeNonBlocking is context-aware at every suspension point: pool
	// acquisition and statement round-trips honor the caller's context.
	ModeNonBlocking Mode = "nonblocking"
)

// Engine is a managed connection pool plus driver configuration for one
// database family and one execution mode. Engines are built by the
// Registry and shared by every session of their mode.
type Engine struct {
	mode  Mode
	uri   string
	db    *gorm.DB
	sqlDB *sql.DB
	cfg   config.DatabaseConfig
	log   *logger.Logger
	hooks *hookBus
}

// newEngine constructs the pooled engine for mode using uri. Construction
// failures surface immediately; nothing is left half-open.
func newEngine(mode Mode, uri string, cfg config.DatabaseConfig, log *logger.Logger) (*Engine, error) {
	dialector, err := dsn.Dialector(uri)
	if err != nil {
		return nil, err
	}

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
		// Sessions manage their own transactions; GORM's per-write implicit
		// transaction would nest inside them.
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, dberrors.EngineConstruction(string(mode), err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, dberrors.EngineConstruction(string(mode), err)
	}

	// PoolSize maps to the idle pool, PoolSize+MaxOverflow to the hard cap.
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	if idleTime, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		sqlDB.SetConnMaxIdleTime(idleTime)
	}

	e := &Engine{
		mode:  mode,
		uri:   uri,
		db:    gdb,
		sqlDB: sqlDB,
		cfg:   cfg,
		log:   log,
		hooks: newHookBus(),
	}
	e.registerCallbacks()

	log.Info("engine ready", map[string]interface{}{
		"mode":         string(mode),
		"pool_size":    cfg.PoolSize,
		"max_overflow": cfg.MaxOverflow,
	})
	return e, nil
}

// Mode returns the engine's execution mode.
func (e *Engine) Mode() Mode { return e.mode }

// URI returns the connection URI the engine was built from.
func (e *Engine) URI() string { return e.uri }

// DB returns the engine-level GORM handle. Statements issued through it run
// on pool-managed connections outside any session; sessions get their own
// connection-pinned handle from the session factory.
func (e *Engine) DB() *gorm.DB { return e.db }

// Pool returns the underlying connection pool.
func (e *Engine) Pool() *sql.DB { return e.sqlDB }

// AcquireTimeout returns the bounded wait applied to pool acquisition.
func (e *Engine) AcquireTimeout() time.Duration {
	return e.cfg.AcquireTimeoutDuration()
}

// Stats returns connection pool statistics.
func (e *Engine) Stats() sql.DBStats { return e.sqlDB.Stats() }

// Tables lists the tables visible to this engine. This is the introspection
// surface exposed to model and repository collaborators.
func (e *Engine) Tables(ctx context.Context) ([]string, error) {
	return e.db.WithContext(ctx).Migrator().GetTables()
}

// close shuts the pool down, terminating idle connections. Sessions still
// open on the pool are the caller's responsibility to have closed first.
func (e *Engine) close() error {
	return e.sqlDB.Close()
}
