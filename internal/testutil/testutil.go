// Package testutil provides shared helpers for tests: database setup and
// fixture builders.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/backport-bot/internal/migrate"
)

// WithTestDB runs fn against the database named by TEST_DATABASE_URL with
// the schema migrated and the tables emptied. The test is skipped when the
// variable is unset.
func WithTestDB(t *testing.T, fn func(db *sql.DB)) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("test db close failed: %v", cerr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		t.Skipf("test database not available: %v", pingErr)
	}
	if migrateErr := migrate.Run(ctx, db); migrateErr != nil {
		t.Fatalf("migrate test database: %v", migrateErr)
	}
	if _, truncErr := db.ExecContext(ctx, `TRUNCATE jobs, job_logs, workflow_steps`); truncErr != nil {
		t.Fatalf("truncate test tables: %v", truncErr)
	}

	fn(db)
}
