package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/tendant/social-idm/migrations"
)

// Migrator applies the embedded schema migrations for the connected driver.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator builds a migrator for db using the migrations embedded in the
// migrations package.
func NewMigrator(db *sqlx.DB) (*Migrator, error) {
	return newMigrator(db, migrations.FS)
}

func newMigrator(db *sqlx.DB, migrationFS fs.FS) (*Migrator, error) {
	driverName := db.DriverName()

	sub, err := fs.Sub(migrationFS, driverName)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrations sub-filesystem: %w", driverName, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var driver database.Driver
	switch driverName {
	case DriverPostgres:
		driver, err = migratepostgres.WithInstance(db.DB, &migratepostgres.Config{})
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. Having nothing to apply is not an error.
func (g *Migrator) Up() error {
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	g.logVersion()
	return nil
}

// Down rolls back every migration.
func (g *Migrator) Down() error {
	if err := g.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	g.logVersion()
	return nil
}

// Force sets the recorded version without running migrations. Only use it to
// recover from a dirty migration state.
func (g *Migrator) Force(version int) error {
	if err := g.m.Force(version); err != nil {
		return fmt.Errorf("failed to force migration version %d: %w", version, err)
	}
	return nil
}

// Version returns the current schema version. A database with no migrations
// applied reports version 0.
func (g *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (g *Migrator) logVersion() {
	version, dirty, err := g.Version()
	if err != nil {
		slog.Warn("could not read migration version", "error", err)
		return
	}
	slog.Info("database schema", "version", version, "dirty", dirty)
}
