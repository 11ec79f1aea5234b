// Package engine manages the lifecycle of dbkit's pooled database engines.
//
// A Registry owns at most one live engine per execution mode (blocking and
// non-blocking). Engines are constructed lazily on first use, guarded by a
// per-mode mutex so concurrent first callers observe exactly one
// construction, and disposed explicitly; a disposed mode is re-enterable.
//
// Each engine also carries a post-execution hook bus: Subscribe registers a
// listener for every statement executed through the engine and returns a
// deregistration func. The statement analyzer is the primary consumer.
package engine
