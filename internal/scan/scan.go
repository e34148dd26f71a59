// Package scan discovers candidate files for a reconciliation pass.
//
// Discovery drives every pass: it enumerates regular files under the
// root in deterministic (lexical) order, excluding the catalog file
// itself, the catalog's SQLite sidecars, and a configured set of
// ignored file names.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Candidate is one discovered file with the metadata the change
// classifier compares against the catalog.
type Candidate struct {
	// Rel is the path relative to the root, slash-separated and
	// NFC-normalized. It is the catalog key.
	Rel string

	// Abs is the absolute path used for I/O.
	Abs string

	Size int64

	// Created and Modified are Unix seconds, UTC, truncated to whole
	// seconds so sub-second filesystem precision cannot leak into
	// comparisons.
	Created  int64
	Modified int64
}

// Problem is a non-fatal discovery failure, e.g. an unreadable
// directory. The walk continues past it.
type Problem struct {
	Path string
	Err  error
}

// Scanner enumerates candidate files under a root.
type Scanner struct {
	root        string
	catalogPath string
	ignore      map[string]struct{}
}

// catalog sidecar suffixes produced by SQLite journaling.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// New returns a Scanner for root. catalogPath is excluded from the
// candidate set by exact match, as are its journaling sidecars; any
// file whose base name appears in ignore is skipped.
func New(root, catalogPath string, ignore []string) (*Scanner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	absCatalog, err := filepath.Abs(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}

	set := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		set[name] = struct{}{}
	}

	return &Scanner{root: absRoot, catalogPath: absCatalog, ignore: set}, nil
}

// Root returns the absolute root the scanner walks.
func (s *Scanner) Root() string { return s.root }

// Scan walks the root and returns every candidate file in lexical
// order. Unreadable entries are collected as Problems and skipped; only
// a missing or unwalkable root is a hard error.
func (s *Scanner) Scan() ([]Candidate, []Problem, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("root %q: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("root %q is not a directory", s.root)
	}

	var (
		candidates []Candidate
		problems   []Problem
	)

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			problems = append(problems, Problem{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if s.excluded(path, d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			// File vanished between readdir and stat.
			problems = append(problems, Problem{Path: path, Err: err})
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})
			return nil
		}

		candidates = append(candidates, Candidate{
			Rel:      Normalize(rel),
			Abs:      path,
			Size:     fi.Size(),
			Created:  truncate(createdTime(fi)),
			Modified: truncate(fi.ModTime()),
		})
		return nil
	})
	if err != nil {
		return nil, problems, fmt.Errorf("walk %q: %w", s.root, err)
	}

	return candidates, problems, nil
}

func (s *Scanner) excluded(path, name string) bool {
	if path == s.catalogPath {
		return true
	}
	for _, suffix := range sidecarSuffixes {
		if path == s.catalogPath+suffix {
			return true
		}
	}
	_, ignored := s.ignore[name]
	return ignored
}

// Normalize converts a root-relative path to its catalog key form:
// forward slashes, Unicode NFC. NFC matters because macOS reports NFD
// names; without it the same file would key differently across
// filesystems.
func Normalize(rel string) string {
	return norm.NFC.String(filepath.ToSlash(rel))
}

// truncate reduces a timestamp to whole-second UTC resolution. Both
// sides of every classifier comparison pass through here (live values
// at scan time, stored values at record time), so sub-second precision
// differences between filesystems cannot cause false positives.
func truncate(t time.Time) int64 {
	return t.UTC().Unix()
}
