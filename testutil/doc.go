// Package testutil provides sqlite-backed helpers for dbkit tests.
package testutil
