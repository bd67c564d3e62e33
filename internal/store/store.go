package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Connection pragmas, passed as go-sqlite3 DSN parameters so they are applied
// to every connection the driver opens.
const dsnParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"

// migration upgrades the schema to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order on databases whose user_version is below their
// version. Append only; never edit a released step.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_activity_operation ON activity(operation_id, seq)`},
	{2, `CREATE INDEX IF NOT EXISTS idx_operations_board ON operations(status, eta)`},
}

// Store persists operations, holds and the activity log in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path and brings its schema up
// to date. Pass ":memory:" for a private throwaway database.
func Open(path string) (*Store, error) {
	dsn := path + "?" + dsnParams
	if strings.Contains(path, "?") {
		dsn = path + "&" + dsnParams
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates missing tables, then applies pending migrations and records
// the resulting version in user_version. Safe to run on every open.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// schemaVersion is the version a fully migrated database reports.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
