package testutil

import (
	"os"
	"testing"

	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

// PostgresDSNEnv names a throwaway Postgres database for tests built with
// the postgres tag. Its medislot tables are dropped and recreated.
const PostgresDSNEnv = "MEDISLOT_TEST_PG_DSN"

// NewPostgresDB returns a freshly migrated Postgres database, or skips the
// test when PostgresDSNEnv is unset.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	db, err := database.OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Migrator().DropTable(models.All()...); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
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
