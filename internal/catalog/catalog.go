// Package catalog defines the storage contract for the file fingerprint
// catalog: the record types persisted per file, the singleton metadata
// record, and the transactional Store interface the reconciliation
// engine writes through.
//
// The package is a pure contract - it carries no driver. The SQLite
// implementation lives in catalog/sqlite.
package catalog

import "context"

// FormatVersion is the catalog schema format understood by this build.
const FormatVersion = 1

// FileRecord is one catalog row: the recorded fingerprint and metadata
// of a single file, keyed by its path relative to the indexed root.
//
// Path uses forward-slash separators regardless of platform and is
// NFC-normalized so the same file observed through differently
// normalizing filesystems maps to one row. It never equals the catalog
// file's own path (discovery excludes it).
type FileRecord struct {
	// Path is the unique key, relative to the indexed root.
	Path string

	// Size is the file length in bytes at fingerprint time.
	Size int64

	// Created and Modified are filesystem timestamps as Unix seconds,
	// UTC. Both are truncated to whole seconds before storage so that
	// comparisons against live stat values are exact.
	Created  int64
	Modified int64

	// Hash is the strong content digest of the full file content at the
	// moment it was last (re)computed.
	Hash []byte

	// HashOfHash is the digest of Hash's raw bytes, stored independently.
	// It detects corruption of the Hash column itself: for every stored
	// record, HashOfHash == Digest(Hash) must hold at all times.
	HashOfHash []byte
}

// Meta is the singleton catalog metadata record.
type Meta struct {
	// FormatVersion identifies the catalog schema format (currently 1).
	FormatVersion int

	// Algorithm identifies the digest algorithm, e.g. "sha1".
	Algorithm string

	// RootPath is the absolute root the catalog was built against.
	// Informational only - it is not re-validated against the root of a
	// later invocation.
	RootPath string

	// CreatedAt is the Build time, Unix seconds UTC.
	CreatedAt int64

	// LastUpdatedAt is nil until the first Update pass and is set on
	// every Update commit.
	LastUpdatedAt *int64
}

// Run is one audit row recording a completed pass over the catalog.
type Run struct {
	// Token is the time-sortable pass identifier (UUIDv7).
	Token string

	// Mode is "build", "update" or "verify".
	Mode string

	StartedAt  int64
	FinishedAt int64

	// Files and Bytes are the totals processed by the pass.
	Files int64
	Bytes int64

	// Failures counts per-file infrastructure failures during the pass.
	Failures int64
}

// Provider binds a catalog location to its driver. The reconciliation
// engine opens the store through it only after discovery has produced a
// non-empty candidate set.
type Provider interface {
	// Create makes a new catalog and stores meta. Fails with ErrExists
	// if one is already present.
	Create(meta *Meta) (Store, error)

	// Open opens an existing catalog. Fails with ErrMissing if absent.
	Open() (Store, error)
}

// Store is a persistent catalog. Implementations must support exactly
// one write transaction at a time; the reconciliation engine opens one
// transaction per pass and commits it atomically.
type Store interface {
	// Begin opens a transaction scope. Verify uses it for consistent
	// reads; Build and Update bundle every mutation of the pass into it.
	Begin(ctx context.Context) (Tx, error)

	// Meta reads the singleton metadata record outside any transaction.
	// It must not be called while a Tx from Begin is open: drivers may
	// pin the store to a single connection, and an open transaction
	// holds it. The passes read meta before Begin.
	Meta(ctx context.Context) (*Meta, error)

	Close() error
}

// Tx is a catalog transaction. Mutations are durable only after Commit;
// Rollback after Commit is a no-op.
type Tx interface {
	// Lookup returns the record stored under path, or nil if absent.
	// More than one row under a unique key reports an IntegrityError.
	Lookup(path string) (*FileRecord, error)

	// Insert adds a new record. Exactly one row must be created.
	Insert(rec *FileRecord) error

	// Update overwrites the record stored under rec.Path. Affecting
	// zero or more than one row reports an IntegrityError.
	Update(rec *FileRecord) error

	// Paths returns every stored file path in lexical order.
	Paths() ([]string, error)

	// TouchMeta sets the metadata record's LastUpdatedAt.
	TouchMeta(lastUpdated int64) error

	// RecordRun appends a pass audit row.
	RecordRun(run *Run) error

	Commit() error
	Rollback() error
}
