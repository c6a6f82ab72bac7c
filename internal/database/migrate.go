package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"confessionrelay/internal/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate brings the schema up to date using the migrations embedded for the
// connection's dialect.
func Migrate(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+db.DriverName())
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var drv migratedb.Driver
	switch db.DriverName() {
	case DriverPostgres:
		conn, err := db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		pg, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		drv = pg
	case DriverSQLite:
		drv, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
	default:
		return fmt.Errorf("unsupported driver for migrations: %s", db.DriverName())
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), drv)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// The sqlite driver owns db.DB; closing it would close the shared pool.
	// The postgres driver only owns the borrowed connection.
	if db.DriverName() == DriverPostgres {
		defer m.Close()
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn("found dirty database state, forcing version", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ = m.Version()
	log.Info("database migrations applied", "driver", db.DriverName(), "version", version)
	return nil
}
