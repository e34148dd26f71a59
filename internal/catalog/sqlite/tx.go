package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/seclark/intact/internal/catalog"
)

// sqlTx wraps a database transaction as a catalog.Tx.
//
// Every mutation checks RowsAffected: the files table is keyed by path,
// so anything other than exactly one affected row means the catalog's
// key invariant is broken and is reported as an IntegrityError.
type sqlTx struct {
	tx *sql.Tx
}

var _ catalog.Tx = (*sqlTx)(nil)

func (t *sqlTx) Lookup(path string) (*catalog.FileRecord, error) {
	rows, err := t.tx.Query(`
		SELECT path, size, created, modified, hash, hash_of_hash
		FROM files WHERE path = ?
	`, path)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", path, err)
	}
	defer rows.Close()

	var rec *catalog.FileRecord
	var n int64
	for rows.Next() {
		n++
		if n > 1 {
			return nil, &catalog.IntegrityError{Op: "lookup", Path: path, Rows: n}
		}
		rec = &catalog.FileRecord{}
		err := rows.Scan(&rec.Path, &rec.Size, &rec.Created, &rec.Modified, &rec.Hash, &rec.HashOfHash)
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", path, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup %q: %w", path, err)
	}
	return rec, nil
}

func (t *sqlTx) Insert(rec *catalog.FileRecord) error {
	res, err := t.tx.Exec(`
		INSERT INTO files (path, size, created, modified, hash, hash_of_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Path, rec.Size, rec.Created, rec.Modified, rec.Hash, rec.HashOfHash)
	if err != nil {
		return fmt.Errorf("insert %q: %w", rec.Path, err)
	}
	return affectedOne(res, "insert", rec.Path)
}

func (t *sqlTx) Update(rec *catalog.FileRecord) error {
	res, err := t.tx.Exec(`
		UPDATE files SET size = ?, created = ?, modified = ?, hash = ?, hash_of_hash = ?
		WHERE path = ?
	`, rec.Size, rec.Created, rec.Modified, rec.Hash, rec.HashOfHash, rec.Path)
	if err != nil {
		return fmt.Errorf("update %q: %w", rec.Path, err)
	}
	return affectedOne(res, "update", rec.Path)
}

func (t *sqlTx) Paths() ([]string, error) {
	rows, err := t.tx.Query(`SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (t *sqlTx) TouchMeta(lastUpdated int64) error {
	res, err := t.tx.Exec(`UPDATE meta SET last_updated_at = ? WHERE id = 1`, lastUpdated)
	if err != nil {
		return fmt.Errorf("touch meta: %w", err)
	}
	return affectedOne(res, "update", "meta")
}

func (t *sqlTx) RecordRun(run *catalog.Run) error {
	_, err := t.tx.Exec(`
		INSERT INTO runs (token, mode, started_at, finished_at, files, bytes, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Token, run.Mode, run.StartedAt, run.FinishedAt, run.Files, run.Bytes, run.Failures)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func affectedOne(res sql.Result, op, path string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q: rows affected: %w", op, path, err)
	}
	if n != 1 {
		return &catalog.IntegrityError{Op: op, Path: path, Rows: n}
	}
	return nil
}
