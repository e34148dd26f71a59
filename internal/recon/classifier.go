package recon

import (
	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/scan"
)

// Mode selects which pass consumes a classification.
type Mode string

const (
	ModeBuild  Mode = "build"
	ModeUpdate Mode = "update"
	ModeVerify Mode = "verify"
)

// Decision is the change classifier's verdict for one candidate file.
type Decision int

const (
	// Unchanged: a record exists and size, created and modified all
	// match the live values exactly. Verify still proceeds to hash
	// comparison - metadata equality alone does not certify content.
	Unchanged Decision = iota

	// Changed: a record exists but at least one metadata field differs.
	// Update recomputes the fingerprint; Verify reports the file as
	// changed without hashing, since comparing a digest against content
	// the timestamps already prove has moved on proves nothing.
	Changed

	// New: no record exists and the pass may create one (Build/Update).
	New

	// NotFound: no record exists and the pass is read-only (Verify).
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case New:
		return "new"
	case NotFound:
		return "not-found"
	}
	return "unknown"
}

// Classify decides how one candidate relates to its stored record.
//
// It is a pure function: all timestamp normalization happens upstream
// (scan truncates live values, the catalog stores truncated values), so
// the comparison here is exact integer equality at one-second
// resolution.
func Classify(cur scan.Candidate, stored *catalog.FileRecord, mode Mode) Decision {
	if stored == nil {
		if mode == ModeVerify {
			return NotFound
		}
		return New
	}
	if cur.Size == stored.Size && cur.Created == stored.Created && cur.Modified == stored.Modified {
		return Unchanged
	}
	return Changed
}
