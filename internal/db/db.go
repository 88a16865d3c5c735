// Package db is the SQLite backing for the ledger and small key/value
// settings. Both the cgo driver (mattn/go-sqlite3, "sqlite3") and the pure Go
// driver (modernc.org/sqlite, "sqlite") are registered.
package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/b0ase/path402/apps/poeminter/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

// DB is an open database. Ledger reads and writes are scoped to the run
// that opened it, so entries never carry over between runs.
type DB struct {
	sql    *sql.DB
	runID  string
	driver string
}

// Open initializes the database at path with the named driver and runs the
// embedded schema.
func Open(driver, path string) (*DB, error) {
	dsn, err := dataSource(driver, path)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Single writer, multiple readers
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	d := &DB{sql: conn, runID: uuid.New().String(), driver: driver}
	logging.For("db").WithField("driver", driver).WithField("run_id", d.runID).Infof("Opened %s", path)
	return d, nil
}

func dataSource(driver, path string) (string, error) {
	switch driver {
	case DriverCGO:
		return path + "?_journal_mode=WAL&_foreign_keys=ON", nil
	case DriverPure:
		return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
}

// Close shuts down the database connection.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	err := d.sql.Close()
	d.sql = nil
	logging.For("db").Info("Closed")
	return err
}

// SQL returns the underlying *sql.DB for direct queries.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

// RunID identifies the run this handle writes ledger entries for.
func (d *DB) RunID() string {
	return d.runID
}

// Driver is the database/sql driver name in use.
func (d *DB) Driver() string {
	return d.driver
}
