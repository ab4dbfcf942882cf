// Package migrations holds the schema, embedded so every binary can bring
// the database up to date on start.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed *.sql
var schema embed.FS

// Run applies every migration that hasn't been applied yet and returns the
// schema version the database ends up at.
func Run(dbx *sqlx.DB) (uint, error) {
	m, err := newMigrator(dbx)
	if err != nil {
		return 0, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("error applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("error reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	slog.Info("schema up to date", "version", version)
	return version, nil
}

func newMigrator(dbx *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schema, ".")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded schema: %w", err)
	}
	driver, err := sqlite.WithInstance(dbx.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("error wrapping database for migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("error creating migrator: %w", err)
	}
	return m, nil
}
