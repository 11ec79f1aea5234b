package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/dbkit/config"
	"github.com/kbukum/dbkit/engine"
	"github.com/kbukum/dbkit/logger"
)

// FileConfig returns a database config backed by a sqlite file in a
// per-test temp directory. File-backed databases are visible across pooled
// connections, unlike per-connection :memory: databases.
func FileConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	cfg := config.DatabaseConfig{
		URI: "sqlite:///" + filepath.Join(t.TempDir(), "dbkit_test.db"),
	}
	cfg.ApplyDefaults()
	return cfg
}

// NewRegistry returns a registry over a temp sqlite database, disposed when
// the test finishes.
func NewRegistry(t *testing.T) *engine.Registry {
	t.Helper()
	reg := engine.NewRegistry(FileConfig(t), logger.Nop())
	t.Cleanup(func() {
		_ = reg.DisposeAll()
	})
	return reg
}

// MustExec runs raw SQL and fails the test on error.
func MustExec(t *testing.T, db *gorm.DB, sql string, args ...interface{}) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

// CountRows returns the number of rows in a table.
func CountRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
		t.Fatalf("count rows in %s: %v", table, err)
	}
	return count
}
