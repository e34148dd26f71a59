package recon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seclark/intact/internal/catalog/sqlite"
	"github.com/seclark/intact/internal/digest"
	"github.com/seclark/intact/internal/scan"
)

// fakeClock advances one second per Now() call so StartedAt and
// FinishedAt are distinct but deterministic.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// seqTokens generates "run-1", "run-2", ...
type seqTokens struct {
	n int
}

func (g *seqTokens) Generate() string {
	g.n++
	return fmt.Sprintf("run-%d", g.n)
}

// fixture is one root/catalog pair with an engine wired for
// deterministic tests. The catalog lives inside the root so every test
// also exercises self-exclusion.
type fixture struct {
	root        string
	catalogPath string
	engine      *Engine
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return newFixtureAt(t, root)
}

func newFixtureAt(t *testing.T, root string) *fixture {
	t.Helper()
	catalogPath := filepath.Join(root, "catalog.db")

	scanner, err := scan.New(root, catalogPath, []string{".DS_Store"})
	require.NoError(t, err)

	engine := NewEngine(scanner, digest.NewSHA1(), sqlite.NewProvider(catalogPath),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(&fakeClock{t: time.Unix(1700000000, 0)}),
		WithTokenGenerator(&seqTokens{}),
		WithWorkers(2),
	)

	return &fixture{root: root, catalogPath: catalogPath, engine: engine}
}

// write (over)writes a file under the fixture root.
func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// stamp returns a file's current times for later restoration.
func (f *fixture) stamp(t *testing.T, rel string) time.Time {
	t.Helper()
	fi, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return fi.ModTime()
}

// restamp resets a file's access and modification times.
func (f *fixture) restamp(t *testing.T, rel string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// openStore opens the fixture's catalog directly for inspection.
func (f *fixture) openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(f.catalogPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
