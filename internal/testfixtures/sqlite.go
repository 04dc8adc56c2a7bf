package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/example/daily-scheduler/internal/persistence/sqlite"
)

// OpenSQLite opens a throwaway SQLite database for the test, applying the
// schema and closing the pool at cleanup.
func OpenSQLite(t *testing.T) *sqlite.ConnectionPool {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "fixtures.db") + "?_pragma=foreign_keys(1)"
	pool, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("close fixture database: %v", err)
		}
	})
	return pool
}
