package engine

import (
	"fmt"
	"sync"

	"github.com/kbukum/dbkit/config"
	"github.com/kbukum/dbkit/dsn"
	"github.com/kbukum/dbkit/logger"
)

// Registry owns at most one live engine per execution mode. Construction is
// lazy and race-safe; disposal returns a mode to its unconstructed state so
// the next Get rebuilds from scratch.
type Registry struct {
	cfg config.DatabaseConfig
	log *logger.Logger

	blocking    engineSlot
	nonBlocking engineSlot
}

type engineSlot struct {
	mu     sync.Mutex
	engine *Engine
}

// NewRegistry creates a registry over the given database configuration.
// The non-blocking engine's URI is derived from cfg.URI via dsn.Translate.
func NewRegistry(cfg config.DatabaseConfig, log *logger.Logger) *Registry {
	cfg.ApplyDefaults()
	return &Registry{
		cfg: cfg,
		log: log.WithComponent("engine"),
	}
}

func (r *Registry) slot(mode Mode) (*engineSlot, error) {
	switch mode {
	case ModeBlocking:
		return &r.blocking, nil
	case ModeNonBlocking:
		return &r.nonBlocking, nil
	}
	return nil, fmt.Errorf("unknown engine mode %q", mode)
}

// Get returns the mode's engine, constructing it on first use. Concurrent
// first callers observe exactly one construction and receive the same
// handle; the slot mutex is held across the build rather than racing
// duplicate builds and discarding losers. A failed construction leaves the
// slot empty so the next call retries.
func (r *Registry) Get(mode Mode) (*Engine, error) {
	slot, err := r.slot(mode)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.engine != nil {
		return slot.engine, nil
	}

	uri := r.cfg.URI
	if mode == ModeNonBlocking {
		uri, err = dsn.Translate(uri)
		if err != nil {
			return nil, err
		}
	}

	eng, err := newEngine(mode, uri, r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	slot.engine = eng
	return eng, nil
}

// Dispose closes the mode's pool and clears the slot, making the mode
// re-enterable: the next Get constructs a fresh engine. Disposing an
// unconstructed mode is a no-op, not an error.
func (r *Registry) Dispose(mode Mode) error {
	slot, err := r.slot(mode)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.engine == nil {
		return nil
	}

	eng := slot.engine
	slot.engine = nil

	if inUse := eng.Stats().InUse; inUse > 0 {
		r.log.Warn("disposing engine with connections still in use", map[string]interface{}{
			"mode":   string(mode),
			"in_use": inUse,
		})
	}

	if err := eng.close(); err != nil {
		return fmt.Errorf("dispose %s engine: %w", mode, err)
	}
	r.log.Info("engine disposed", map[string]interface{}{"mode": string(mode)})
	return nil
}

// DisposeAll disposes both modes. Used at process shutdown and for test
// isolation. The first error is returned but both modes are attempted.
func (r *Registry) DisposeAll() error {
	var first error
	for _, mode := range []Mode{ModeBlocking, ModeNonBlocking} {
		if err := r.Dispose(mode); err != nil && first == nil {
			first = err
		}
	}
	return first
}
