package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// DefaultMigrationsTable is the table used to track applied migrations.
const DefaultMigrationsTable = "relay_schema_migrations"

// ErrNilConfig is returned by WithInstance when config is nil.
var ErrNilConfig = errors.New("no config")

// Config configures the migration driver.
type Config struct {
	MigrationsTable string
}

// Driver is a golang-migrate database driver for connections opened with
// the ncruces/go-sqlite3 driver. golang-migrate's own sqlite3 driver links
// mattn/go-sqlite3, which registers the same driver name.
type Driver struct {
	db       *sql.DB
	isLocked atomic.Bool
	config   *Config
}

// WithInstance wraps an open connection.
func WithInstance(db *sql.DB, config *Config) (database.Driver, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if config.MigrationsTable == "" {
		config.MigrationsTable = DefaultMigrationsTable
	}
	d := &Driver{db: db, config: config}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) ensureVersionTable() (err error) {
	if err = d.Lock(); err != nil {
		return err
	}
	defer func() {
		if e := d.Unlock(); e != nil {
			err = errors.Join(err, e)
		}
	}()
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (version uint64, dirty bool);
	CREATE UNIQUE INDEX IF NOT EXISTS %s_version_unique ON %s (version);
	`, d.config.MigrationsTable, d.config.MigrationsTable, d.config.MigrationsTable)
	_, err = d.db.Exec(query)
	return err
}

// Open is unsupported; use WithInstance.
func (d *Driver) Open(_ string) (database.Driver, error) {
	return nil, errors.New("open is not supported, use WithInstance")
}

// Close is a no-op. The connection belongs to the caller.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Lock() error {
	if !d.isLocked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *Driver) Unlock() error {
	if !d.isLocked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *Driver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	return d.execTx(string(body))
}

func (d *Driver) execTx(query string, args ...any) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if _, err := tx.Exec(query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return &database.Error{OrigErr: err, Query: []byte(query)}
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func (d *Driver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}
	query := "DELETE FROM " + d.config.MigrationsTable
	if _, err := tx.Exec(query); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return &database.Error{OrigErr: err, Query: []byte(query)}
	}
	// A dirty nil version is kept so a failed first down migration is
	// still visible.
	if version >= 0 || (version == database.NilVersion && dirty) {
		query = "INSERT INTO " + d.config.MigrationsTable + " (version, dirty) VALUES (?, ?)"
		if _, err := tx.Exec(query, version, dirty); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return &database.Error{OrigErr: err, Query: []byte(query)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func (d *Driver) Version() (version int, dirty bool, err error) {
	query := "SELECT version, dirty FROM " + d.config.MigrationsTable + " LIMIT 1"
	if err := d.db.QueryRow(query).Scan(&version, &dirty); err != nil {
		return database.NilVersion, false, nil
	}
	return version, dirty, nil
}

func (d *Driver) Drop() (err error) {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return err
	}
	for _, name := range tables {
		if err := d.execTx("DROP TABLE " + name); err != nil {
			return err
		}
	}
	return nil
}
