package db

import (
	"context"
	"os"
	"testing"
)

// TestDatabaseURLEnv names the PostgreSQL server used by backend tests.
const TestDatabaseURLEnv = "IRONTRACE_TEST_DATABASE_URL"

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t testing.TB) Storage {
	t.Helper()

	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(context.Background(), s); err != nil {
		s.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

// NewPostgresTestDB connects to the server named by IRONTRACE_TEST_DATABASE_URL,
// resets all tables and applies the schema. The test is skipped when the
// variable is unset.
func NewPostgresTestDB(t testing.TB) Storage {
	t.Helper()

	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Fatalf("opening postgres test database: %v", err)
	}

	_, err = s.Exec(ctx, `DROP TABLE IF EXISTS loans, write_offs, audit_log, products, workers,
		settings, users, revoked_tokens CASCADE`)
	if err != nil {
		s.Close()
		t.Fatalf("resetting postgres test database: %v", err)
	}

	if err := EnsureSchema(ctx, s); err != nil {
		s.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

// ForEachBackend runs fn against SQLite and, when configured, PostgreSQL.
func ForEachBackend(t *testing.T, fn func(t *testing.T, s Storage)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, NewTestDB(t))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, NewPostgresTestDB(t))
	})
}
