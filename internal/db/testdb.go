package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a private in-memory database with the schema applied. When
// the test ends it fails if any row breaks a foreign key.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	return newTestDB(t, ":memory:")
}

// NewTestFileDB is NewTestDB backed by a file in a temporary directory, with
// the full connection pool and immediate write transactions of a deployment.
func NewTestFileDB(t testing.TB) *sql.DB {
	t.Helper()
	return newTestDB(t, filepath.Join(t.TempDir(), "shramba.sqlite3"))
}

func newTestDB(t testing.TB, path string) *sql.DB {
	t.Helper()

	database, err := Open(path)
	if err != nil {
		t.Fatalf("opening database %s: %v", path, err)
	}
	if err := EnsureSchema(database); err != nil {
		database.Close()
		t.Fatalf("applying schema: %v", err)
	}

	t.Cleanup(func() {
		defer database.Close()
		rows, err := database.Query(`PRAGMA foreign_key_check`)
		if err != nil {
			t.Errorf("checking foreign keys: %v", err)
			return
		}
		defer rows.Close()
		if rows.Next() {
			t.Error("database left with foreign key violations")
		}
	})
	return database
}
