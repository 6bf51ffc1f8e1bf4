// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/gdg-garage/medislot-api/internal/database"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database that lives for the
// duration of the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewTxRunner wraps db with a fast retry policy.
func NewTxRunner(db *gorm.DB) *database.TxRunner {
	return database.NewTxRunner(db, database.RetryPolicy{Attempts: 3, Backoff: 0})
}
