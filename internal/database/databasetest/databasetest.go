// Package databasetest provides migrated SQLite databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fekuna/omnipos-qrmenu/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New returns a fresh, migrated SQLite database that is closed when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, &database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "qrmenu.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(ctx, db)
	require.NoError(t, err)
	return db
}
