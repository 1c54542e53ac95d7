package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// DefaultTestDSN points at the local patient_dashboard_test database.
const DefaultTestDSN = "host=localhost port=5432 user=localadmin password=localadmin dbname=patient_dashboard_test sslmode=disable"

// TestDSN returns TEST_DATABASE_DSN, or DefaultTestDSN when unset.
func TestDSN() string {
	if dsn := os.Getenv("TEST_DATABASE_DSN"); dsn != "" {
		return dsn
	}
	return DefaultTestDSN
}

// SetupTestDB creates a connection to the test database and closes it when
// the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", TestDSN())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// CleanupCollection removes every document of collection. Use a collection
// name unique to the test so parallel packages do not interfere.
func CleanupCollection(t *testing.T, db *sql.DB, collection string) {
	t.Helper()

	if _, err := db.Exec(`DELETE FROM documents WHERE collection = $1`, collection); err != nil {
		t.Logf("Warning: Failed to clean up collection %s: %v", collection, err)
	}
}
