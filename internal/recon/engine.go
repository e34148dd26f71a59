// Package recon implements the reconciliation engine: the three passes
// (Build, Update, Verify) that keep the fingerprint catalog and the
// live filesystem in agreement.
//
// All three passes share the same skeleton: discovery produces the
// candidate sequence, the change classifier decides per file, the
// fingerprint engine runs only when the decision requires it, and the
// catalog store absorbs mutations inside exactly one transaction per
// pass. Per-file failures are isolated - they land in a failures list
// and the pass continues; only precondition and commit errors are fatal.
package recon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/digest"
	"github.com/seclark/intact/internal/scan"
)

// ErrNoFiles reports that discovery produced an empty candidate set.
// This is a precondition failure: the store is never opened.
var ErrNoFiles = errors.New("no candidate files found under root")

// ErrAlgorithmMismatch reports that the catalog was built with a
// different digest algorithm than this engine computes. Comparing
// digests across algorithms is meaningless, so the pass aborts before
// touching any file.
var ErrAlgorithmMismatch = errors.New("catalog digest algorithm mismatch")

// Failure is one isolated per-file error. Failures never abort a pass.
type Failure struct {
	Path string
	Err  error
}

// Clock supplies pass timestamps. Injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TokenGenerator produces run tokens for pass correlation.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so the
// runs audit table sorts chronologically by token as well as by
// timestamp.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine orchestrates reconciliation passes over one root/catalog pair.
type Engine struct {
	scanner *scan.Scanner
	digest  *digest.Engine
	stores  catalog.Provider

	log           *slog.Logger
	clock         Clock
	tokens        TokenGenerator
	workers       int
	progressEvery int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the pass clock (tests).
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokenGenerator overrides the run token source (tests).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithWorkers sets the number of hash workers Build fans out to.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithProgressEvery sets how many files between progress log lines.
func WithProgressEvery(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.progressEvery = n
		}
	}
}

// NewEngine creates an Engine over the given discovery scanner,
// fingerprint engine and catalog provider.
func NewEngine(scanner *scan.Scanner, dig *digest.Engine, stores catalog.Provider, opts ...Option) *Engine {
	e := &Engine{
		scanner:       scanner,
		digest:        dig,
		stores:        stores,
		log:           slog.Default(),
		clock:         systemClock{},
		tokens:        UUIDv7Generator{},
		workers:       4,
		progressEvery: 1000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// discover runs discovery and enforces the non-empty precondition.
// Walk problems become per-file failures carried into the pass.
func (e *Engine) discover() ([]scan.Candidate, []Failure, error) {
	candidates, problems, err := e.scanner.Scan()
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, ErrNoFiles
	}

	failures := make([]Failure, 0, len(problems))
	for _, p := range problems {
		e.log.Warn("discovery problem", "path", p.Path, "error", p.Err)
		failures = append(failures, Failure{Path: p.Path, Err: p.Err})
	}
	return candidates, failures, nil
}

// checkAlgorithm verifies the open catalog was built with this engine's
// digest algorithm.
func (e *Engine) checkAlgorithm(meta *catalog.Meta) error {
	if meta.Algorithm != e.digest.Algorithm() {
		return fmt.Errorf("%w: catalog has %q, engine computes %q",
			ErrAlgorithmMismatch, meta.Algorithm, e.digest.Algorithm())
	}
	return nil
}

// fail records one isolated per-file failure.
func (e *Engine) fail(failures []Failure, path string, err error) []Failure {
	e.log.Warn("file failed", "path", path, "error", err)
	return append(failures, Failure{Path: path, Err: err})
}

// progress emits a progress line every progressEvery files.
func (e *Engine) progress(mode Mode, files, bytes int64) {
	if files%e.progressEvery == 0 {
		e.log.Info("progress", "mode", string(mode), "files", files, "bytes", bytes)
	}
}
