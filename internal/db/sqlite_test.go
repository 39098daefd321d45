package db_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/internal/db"
	"focusflow/internal/testutil"
)

func TestMigrationsApplyOnBothDrivers(t *testing.T) {
	for _, driver := range []string{db.DriverCGO, db.DriverPure} {
		t.Run(driver, func(t *testing.T) {
			database := testutil.NewTestDB(t, driver)

			applied, err := db.AppliedMigrations(database)
			require.NoError(t, err)
			assert.Contains(t, applied, "001_init.sql")

			// Re-running is a no-op.
			require.NoError(t, db.RunMigrations(database, testutil.MigrationsDir()))
			again, err := db.AppliedMigrations(database)
			require.NoError(t, err)
			assert.Equal(t, applied, again)

			var fk int
			require.NoError(t, database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
			assert.Equal(t, 1, fk)
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := db.Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}
