package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/scan"
)

// UpdateResult aggregates one Update pass.
type UpdateResult struct {
	Token    string
	Files    int64 // candidates examined
	Bytes    int64 // content bytes fingerprinted (new + changed files)
	New      []string
	Changed  []string
	Failures []Failure
	Elapsed  time.Duration
}

// OK reports whether the pass completed without per-file failures.
func (r *UpdateResult) OK() bool {
	return len(r.Failures) == 0
}

// NoChanges reports whether the filesystem matched the catalog exactly.
func (r *UpdateResult) NoChanges() bool {
	return len(r.New) == 0 && len(r.Changed) == 0
}

// Update refreshes an existing catalog against the live tree. Unchanged
// files are untouched; changed files get a recomputed fingerprint and
// overwrite their row; new files are inserted. All mutations plus the
// metadata's last_updated_at commit as one atomic transaction.
func (e *Engine) Update(ctx context.Context) (*UpdateResult, error) {
	started := e.clock.Now()
	token := e.tokens.Generate()
	log := e.log.With("mode", "update", "run", token)

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

	result := &UpdateResult{Token: token, Failures: failures}
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

		switch Classify(c, stored, ModeUpdate) {
		case Unchanged:
			// No mutation.

		case New:
			rec, bytes, err := e.fingerprint(c)
			if err != nil {
				result.Failures = e.fail(result.Failures, c.Rel, err)
				continue
			}
			if err := tx.Insert(rec); err != nil {
				result.Failures = e.fail(result.Failures, c.Rel, err)
				continue
			}
			result.Bytes += bytes
			result.New = append(result.New, c.Rel)
			log.Debug("new file", "path", c.Rel)

		case Changed:
			rec, bytes, err := e.fingerprint(c)
			if err != nil {
				result.Failures = e.fail(result.Failures, c.Rel, err)
				continue
			}
			// Must affect exactly one row; anything else is a catalog
			// key invariant violation, isolated to this file.
			if err := tx.Update(rec); err != nil {
				result.Failures = e.fail(result.Failures, c.Rel, err)
				continue
			}
			result.Bytes += bytes
			result.Changed = append(result.Changed, c.Rel)
			log.Debug("changed file", "path", c.Rel)
		}

		e.progress(ModeUpdate, result.Files, result.Bytes)
	}

	finished := e.clock.Now()
	result.Elapsed = finished.Sub(started)

	if err := tx.TouchMeta(finished.UTC().Unix()); err != nil {
		return nil, err
	}
	err = tx.RecordRun(&catalog.Run{
		Token:      token,
		Mode:       string(ModeUpdate),
		StartedAt:  started.UTC().Unix(),
		FinishedAt: finished.UTC().Unix(),
		Files:      result.Files,
		Bytes:      result.Bytes,
		Failures:   int64(len(result.Failures)),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update commit: %w", err)
	}

	log.Info("update complete", "files", result.Files, "new", len(result.New),
		"changed", len(result.Changed), "failures", len(result.Failures))
	return result, nil
}

// fingerprint computes a fresh FileRecord for one candidate.
func (e *Engine) fingerprint(c scan.Candidate) (*catalog.FileRecord, int64, error) {
	sum, bytes, err := e.digest.File(c.Abs)
	if err != nil {
		return nil, bytes, err
	}
	hoh, err := e.digest.OfDigest(sum)
	if err != nil {
		return nil, bytes, err
	}
	return &catalog.FileRecord{
		Path:       c.Rel,
		Size:       c.Size,
		Created:    c.Created,
		Modified:   c.Modified,
		Hash:       sum,
		HashOfHash: hoh,
	}, bytes, nil
}
