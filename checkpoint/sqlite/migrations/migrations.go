// Package migrations holds the schema of the SQLite checkpoint store and
// applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var embeddedFS embed.FS

// FS returns the embedded migration files.
func FS() fs.FS {
	return embeddedFS
}

// Run applies all pending migrations. It is a no-op when the schema is
// current.
func Run(db *sql.DB) error {
	source, err := iofs.New(embeddedFS, ".")
	if err != nil {
		return err
	}
	driver, err := WithInstance(db, &Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
