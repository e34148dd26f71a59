package recon

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/seclark/intact/internal/catalog"
)

// VerifyResult aggregates one Verify pass into disjoint outcome
// buckets. A file lands in exactly one of them (or in Failures when an
// infrastructure error prevented a verdict).
type VerifyResult struct {
	Token string
	Files int64 // candidates examined
	Bytes int64 // content bytes read for comparison

	// Ok: metadata matched, the stored hash's own integrity digest
	// matched, and the live content digest matched the stored hash.
	Ok []string

	// Failed: metadata looked untouched but the live content digest
	// diverged from the stored hash - the strongest corruption or
	// tamper signal this system produces.
	Failed []string

	// HashMismatch: the stored hash's integrity digest did not match
	// hash_of_hash. The catalog entry itself is corrupt; the content
	// comparison is still performed but cannot be trusted either way,
	// so the file is reported here regardless of its outcome.
	HashMismatch []string

	// FileChanged: metadata differs from the record. No hashing is
	// performed - the timestamps already prove the file moved on.
	FileChanged []string

	// NotFound: the file exists on disk but has no catalog record.
	NotFound []string

	// Missing: the record exists but discovery never visited the file.
	// Produced by the catalog-driven reverse pass, so a file deleted
	// from disk surfaces here rather than only as an access failure.
	Missing []string

	Failures []Failure
	Elapsed  time.Duration
}

// Clean reports whether every file verified Ok with nothing missing,
// changed, unknown or failed.
func (r *VerifyResult) Clean() bool {
	return len(r.Failed) == 0 &&
		len(r.HashMismatch) == 0 &&
		len(r.FileChanged) == 0 &&
		len(r.NotFound) == 0 &&
		len(r.Missing) == 0 &&
		len(r.Failures) == 0
}

// Verify checks the live tree against an existing catalog without
// mutating either. It opens a transaction scope for consistent reads;
// the only write is a best-effort run audit row after the pass.
func (e *Engine) Verify(ctx context.Context) (*VerifyResult, error) {
	started := e.clock.Now()
	token := e.tokens.Generate()
	log := e.log.With("mode", "verify", "run", token)

	candidates, failures, err := e.discover()
	if err != nil {
		return nil, err
	}
	log.Info("discovery complete", "files", len(candidates))

	store, err := e.stores.Open()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	meta, err := store.Meta(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.checkAlgorithm(meta); err != nil {
		return nil, err
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &VerifyResult{Token: token, Failures: failures}
	visited := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Files++

		stored, err := tx.Lookup(c.Rel)
		if err != nil {
			result.Failures = e.fail(result.Failures, c.Rel, err)
			continue
		}
		if stored != nil {
			visited[c.Rel] = true
		}

		switch Classify(c, stored, ModeVerify) {
		case NotFound:
			result.NotFound = append(result.NotFound, c.Rel)
			log.Debug("not in catalog", "path", c.Rel)

		case Changed:
			result.FileChanged = append(result.FileChanged, c.Rel)
			log.Debug("metadata changed", "path", c.Rel)

		case Unchanged:
			e.verifyContent(c.Rel, c.Abs, stored, result, log)
		}
	}

	// Reverse pass: catalog rows discovery never reached. Without this,
	// a file deleted from disk would be invisible to a pass that
	// iterates the live filesystem.
	paths, err := tx.Paths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if !visited[p] {
			result.Missing = append(result.Missing, p)
			log.Debug("missing from disk", "path", p)
		}
	}

	finished := e.clock.Now()
	result.Elapsed = finished.Sub(started)

	// The verification itself is read-only; the audit row rides in its
	// own small transaction and failure to write it does not taint the
	// verification verdict.
	if err := tx.Rollback(); err != nil {
		log.Warn("read transaction rollback failed", "error", err)
	}
	e.recordRun(ctx, store, &catalog.Run{
		Token:      token,
		Mode:       string(ModeVerify),
		StartedAt:  started.UTC().Unix(),
		FinishedAt: finished.UTC().Unix(),
		Files:      result.Files,
		Bytes:      result.Bytes,
		Failures:   int64(len(result.Failures)),
	})

	log.Info("verify complete", "files", result.Files, "ok", len(result.Ok),
		"failed", len(result.Failed), "hash_mismatch", len(result.HashMismatch),
		"changed", len(result.FileChanged), "not_found", len(result.NotFound),
		"missing", len(result.Missing), "failures", len(result.Failures))
	return result, nil
}

// verifyContent runs the two-step integrity check for a metadata-clean
// file: first the stored hash against its own integrity digest, then
// the live content against the stored hash.
func (e *Engine) verifyContent(rel, abs string, stored *catalog.FileRecord, result *VerifyResult, log *slog.Logger) {
	hoh, err := e.digest.OfDigest(stored.Hash)
	if err != nil {
		result.Failures = e.fail(result.Failures, rel, err)
		return
	}
	catalogCorrupt := !bytes.Equal(hoh, stored.HashOfHash)

	sum, n, err := e.digest.File(abs)
	if err != nil {
		result.Failures = e.fail(result.Failures, rel, err)
		return
	}
	result.Bytes += n

	switch {
	case catalogCorrupt:
		// The stored hash cannot be trusted, so the content comparison
		// above is not evidence either way. Reported distinctly from
		// content failure.
		result.HashMismatch = append(result.HashMismatch, rel)
		log.Debug("catalog entry corrupt", "path", rel)

	case !bytes.Equal(sum, stored.Hash):
		result.Failed = append(result.Failed, rel)
		log.Debug("content diverged", "path", rel)

	default:
		result.Ok = append(result.Ok, rel)
	}
}

// recordRun writes a pass audit row in its own transaction,
// best-effort.
func (e *Engine) recordRun(ctx context.Context, store catalog.Store, run *catalog.Run) {
	tx, err := store.Begin(ctx)
	if err != nil {
		e.log.Warn("run audit skipped", "run", run.Token, "error", err)
		return
	}
	defer tx.Rollback()

	if err := tx.RecordRun(run); err != nil {
		e.log.Warn("run audit skipped", "run", run.Token, "error", err)
		return
	}
	if err := tx.Commit(); err != nil {
		e.log.Warn("run audit skipped", "run", run.Token, "error", err)
	}
}
