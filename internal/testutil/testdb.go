package testutil

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"focusflow/internal/db"
)

// MigrationsDir is the repository's migrations directory.
func MigrationsDir() string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
}

// NewTestDB opens a migrated SQLite database under t.TempDir() using the
// given driver. It is closed when the test completes.
func NewTestDB(t *testing.T, driver string) *sql.DB {
	t.Helper()

	database, err := db.Open(driver, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := db.RunMigrations(database, MigrationsDir()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}
