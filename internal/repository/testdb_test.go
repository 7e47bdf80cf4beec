package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/internal/migrations"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	_ "github.com/mattn/go-sqlite3"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestDB migrates a fresh sqlite file and returns an open handle to it.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	path := filepath.Join(t.TempDir(), "repo.db")
	if err := migrations.Up(migrations.DialectSQLite, "sqlite3://"+path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testClock() core.Clock { return core.FixedClock{At: testNow} }
