// Package migration applies ordered schema migrations through dbkit
// session scopes, tracked in a schema_migrations table.
package migration
