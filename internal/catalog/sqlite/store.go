// Package sqlite implements the catalog store on SQLite.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// SQLite supports one writer at a time, which matches the catalog
// contract exactly: one write transaction per pass. The connection pool
// is pinned to a single connection to avoid SQLITE_BUSY errors.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seclark/intact/internal/catalog"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (files, meta, runs)
const currentSchemaVersion = 1

// Store is a SQLite-backed catalog.
type Store struct {
	db   *sql.DB
	path string
}

var _ catalog.Store = (*Store)(nil)

// Create makes a new catalog at path and stores its metadata row.
// It fails with catalog.ErrExists if the file is already present -
// Build must never overwrite an existing catalog.
func Create(path string, meta *catalog.Meta) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	s, err := open(path)
	if err != nil {
		return nil, err
	}

	if err := s.applySchema(); err != nil {
		s.Close()
		os.Remove(path)
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT INTO meta (id, format_version, algorithm, root_path, created_at, last_updated_at)
		VALUES (1, ?, ?, ?, ?, NULL)
	`, meta.FormatVersion, meta.Algorithm, meta.RootPath, meta.CreatedAt)
	if err != nil {
		s.Close()
		os.Remove(path)
		return nil, fmt.Errorf("store meta: %w", err)
	}

	return s, nil
}

// Open opens an existing catalog. It fails with catalog.ErrMissing if
// the file is not present - Update and Verify require a prior Build.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrMissing, path)
	} else if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	s, err := open(path)
	if err != nil {
		return nil, err
	}

	// A catalog without a meta row was never finished being built.
	if _, err := s.Meta(context.Background()); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}

	// Single writer, one warm connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the catalog file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Begin opens a catalog transaction.
func (s *Store) Begin(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin catalog tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// Meta reads the singleton metadata row.
func (s *Store) Meta(ctx context.Context) (*catalog.Meta, error) {
	var (
		m           catalog.Meta
		lastUpdated sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT format_version, algorithm, root_path, created_at, last_updated_at
		FROM meta WHERE id = 1
	`).Scan(&m.FormatVersion, &m.Algorithm, &m.RootPath, &m.CreatedAt, &lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("read catalog meta: %w", err)
	}
	if lastUpdated.Valid {
		m.LastUpdatedAt = &lastUpdated.Int64
	}
	return &m, nil
}

// Runs returns the pass audit log, most recent first.
func (s *Store) Runs(ctx context.Context) ([]catalog.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, mode, started_at, finished_at, files, bytes, failures
		FROM runs ORDER BY started_at DESC, token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()

	var runs []catalog.Run
	for rows.Next() {
		var r catalog.Run
		if err := rows.Scan(&r.Token, &r.Mode, &r.StartedAt, &r.FinishedAt, &r.Files, &r.Bytes, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
