package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

func prepareGoose(driver Driver, quiet bool) error {
	dialect := "sqlite3"
	if driver == DriverPostgres {
		dialect = "postgres"
	}
	goose.SetBaseFS(migrations)
	if quiet {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect %s: %w", dialect, err)
	}
	return nil
}

// Migrate applies all pending schema migrations. The migration set is
// embedded so the binary is self-contained; cmd/migrator exposes the same
// set for manual control.
func Migrate(db *sql.DB, driver Driver) error {
	if err := prepareGoose(driver, true); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB, driver Driver) error {
	if err := prepareGoose(driver, true); err != nil {
		return err
	}
	return goose.Down(db, "migrations")
}

// MigrationStatus prints migration status via goose's standard logger.
func MigrationStatus(db *sql.DB, driver Driver) error {
	if err := prepareGoose(driver, false); err != nil {
		return err
	}
	return goose.Status(db, "migrations")
}
