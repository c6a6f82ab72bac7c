package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/config"
	"confessionrelay/internal/database"
	"confessionrelay/internal/logger"
)

// NewDB returns a migrated, private in-memory SQLite store that is closed
// when the test ends.
func NewDB(tb testing.TB) *sqlx.DB {
	tb.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := database.Connect(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, DSN: dsn}, logger.NewNop())
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if err := database.Migrate(ctx, db, logger.NewNop()); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}
