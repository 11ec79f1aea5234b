package engine

import (
	"sync"

	"gorm.io/gorm"
)

// Statement is the post-execution notification delivered to hook
// subscribers: the SQL text as sent to the driver plus its bound
// parameters. Subscribers observe execution, they never alter it.
type Statement struct {
	SQL    string
	Params []interface{}
}

type hookBus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]func(Statement)
}

func newHookBus() *hookBus {
	return &hookBus{subs: make(map[uint64]func(Statement))}
}

// Subscribe registers fn for every statement executed through the engine,
// from any session drawn from it, and returns a deregistration func.
// Deregistration is idempotent; calling it more than once is safe.
func (e *Engine) Subscribe(fn func(Statement)) func() {
	e.hooks.mu.Lock()
	id := e.hooks.next
	e.hooks.next++
	e.hooks.subs[id] = fn
	e.hooks.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.hooks.mu.Lock()
			delete(e.hooks.subs, id)
			e.hooks.mu.Unlock()
		})
	}
}

func (b *hookBus) publish(st Statement) {
	b.mu.RLock()
	fns := make([]func(Statement), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	// Delivered outside the lock so a subscriber may deregister itself.
	for _, fn := range fns {
		fn(st)
	}
}

// registerCallbacks taps GORM's after-execution callbacks so subscribers
// see every statement kind the dialect can produce.
func (e *Engine) registerCallbacks() {
	after := func(db *gorm.DB) {
		if db.Statement == nil {
			return
		}
		sqlText := db.Statement.SQL.String()
		if sqlText == "" {
			return
		}
		params := make([]interface{}, len(db.Statement.Vars))
		copy(params, db.Statement.Vars)
		e.hooks.publish(Statement{SQL: sqlText, Params: params})
	}

	cb := e.db.Callback()
	_ = cb.Query().After("gorm:query").Register("dbkit:observe_query", after)
	_ = cb.Raw().After("gorm:raw").Register("dbkit:observe_raw", after)
	_ = cb.Row().After("gorm:row").Register("dbkit:observe_row", after)
	_ = cb.Create().After("gorm:create").Register("dbkit:observe_create", after)
	_ = cb.Update().After("gorm:update").Register("dbkit:observe_update", after)
	_ = cb.Delete().After("gorm:delete").Register("dbkit:observe_delete", after)
}
