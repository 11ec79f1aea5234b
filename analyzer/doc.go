// Package analyzer captures the statements executed through an engine and
// derives repetition statistics used to spot the N+1 query anti-pattern:
// one query followed by a structurally identical query per related record.
//
// A Capture subscribes to the engine's post-execution hook for the duration
// of a window. Analyze groups SELECTs by shape — numeric literals replaced
// with a wildcard — and flags the window when a shape repeats and the
// SELECT count exceeds a configurable threshold.
package analyzer
