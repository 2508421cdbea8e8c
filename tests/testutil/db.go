// Package testutil provides test fixtures for the protocol analysis service.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/database"
)

// NewTestDB creates an in-memory SQLite database with the full schema.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		db.Close()
	})

	err = database.RunMigrations(db)
	require.NoError(t, err, "failed to run migrations")

	return db
}
