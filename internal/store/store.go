package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stored in PRAGMA user_version.
//
//	0 - empty file, no journal yet
//	1 - commits and mutations
const journalVersion = 1

var (
	// ErrNotFound is returned when a commit ID is not in the journal.
	ErrNotFound = errors.New("store: not found")

	// ErrJournalVersion is returned when a file carries a journal layout this
	// build does not know.
	ErrJournalVersion = errors.New("store: unsupported journal version")
)

// journalPragmas are applied to every connection. SQLite only supports one
// writer at a time, so the pool is pinned to a single connection.
var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store is the commit journal.
type Store struct {
	db      *sql.DB
	version int
}

// Open creates or opens the journal at path (":memory:" for a throwaway
// one). A new file gets the current layout; an existing one must already be
// at journalVersion. Reopening is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, pragma := range journalPragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	version, err := s.userVersion()
	if err != nil {
		return err
	}
	switch version {
	case 0:
		return s.create()
	case journalVersion:
		s.version = version
		return nil
	default:
		return fmt.Errorf("%w: file has %d, want %d", ErrJournalVersion, version, journalVersion)
	}
}

// create lays down the schema and stamps the version in one transaction,
// so a crash never leaves tables without a version.
func (s *Store) create() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("stamp version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	s.version = journalVersion
	return nil
}

func (s *Store) userVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read journal version: %w", err)
	}
	return v, nil
}

// Version is the journal layout version of the open file.
func (s *Store) Version() int {
	return s.version
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs a read against the journal. Callers close the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
