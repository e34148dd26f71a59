package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/digest"
)

// BuildResult aggregates one Build pass.
type BuildResult struct {
	Token    string
	Files    int64 // records committed
	Bytes    int64 // content bytes fingerprinted
	Failures []Failure
	Elapsed  time.Duration
}

// OK reports whether every discovered file made it into the catalog.
// A false result still leaves a fully committed catalog for the files
// that succeeded.
func (r *BuildResult) OK() bool {
	return len(r.Failures) == 0
}

// Build creates the catalog from scratch. Preconditions: the catalog
// does not exist and discovery finds at least one file. Every insert
// plus the metadata row commits as one atomic transaction; per-file
// fingerprint failures are isolated and reported, never fatal.
func (e *Engine) Build(ctx context.Context) (*BuildResult, error) {
	started := e.clock.Now()
	token := e.tokens.Generate()
	log := e.log.With("mode", "build", "run", token)

	candidates, failures, err := e.discover()
	if err != nil {
		return nil, err
	}
	log.Info("discovery complete", "files", len(candidates))

	store, err := e.stores.Create(&catalog.Meta{
		FormatVersion: catalog.FormatVersion,
		Algorithm:     e.digest.Algorithm(),
		RootPath:      e.scanner.Root(),
		CreatedAt:     started.UTC().Unix(),
	})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	// Fingerprinting is the expensive part and per-file units are
	// independent, so it fans out across workers. The commit below
	// stays a single transaction regardless.
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Abs
	}
	sums := digest.Pool(ctx, e.digest, paths, e.workers)

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &BuildResult{Token: token, Failures: failures}
	for _, c := range candidates {
		sum, ok := sums[c.Abs]
		if !ok {
			// Pool stopped early: context cancelled.
			return nil, ctx.Err()
		}
		if sum.Err != nil {
			result.Failures = e.fail(result.Failures, c.Rel, sum.Err)
			continue
		}

		hoh, err := e.digest.OfDigest(sum.Sum)
		if err != nil {
			result.Failures = e.fail(result.Failures, c.Rel, err)
			continue
		}

		err = tx.Insert(&catalog.FileRecord{
			Path:       c.Rel,
			Size:       c.Size,
			Created:    c.Created,
			Modified:   c.Modified,
			Hash:       sum.Sum,
			HashOfHash: hoh,
		})
		if err != nil {
			result.Failures = e.fail(result.Failures, c.Rel, err)
			continue
		}

		result.Files++
		result.Bytes += sum.Bytes
		e.progress(ModeBuild, result.Files, result.Bytes)
	}

	finished := e.clock.Now()
	result.Elapsed = finished.Sub(started)

	err = tx.RecordRun(&catalog.Run{
		Token:      token,
		Mode:       string(ModeBuild),
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
		return nil, fmt.Errorf("build commit: %w", err)
	}

	log.Info("build complete", "files", result.Files, "bytes", result.Bytes,
		"failures", len(result.Failures), "elapsed", result.Elapsed)
	return result, nil
}
