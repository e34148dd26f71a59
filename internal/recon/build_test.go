package recon

import (
	"context"
	"crypto/sha1"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclark/intact/internal/catalog"
)

func TestBuild_CreatesCatalog(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt":     "fifteen bytes!!",
		"sub/b.txt": "sixteen bytes!!!",
	})

	result, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, "run-1", result.Token)
	assert.Equal(t, int64(2), result.Files)
	assert.Equal(t, int64(31), result.Bytes)
	assert.Empty(t, result.Failures)

	store := f.openStore(t)
	meta, err := store.Meta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalog.FormatVersion, meta.FormatVersion)
	assert.Equal(t, "sha1", meta.Algorithm)
	assert.Equal(t, f.root, meta.RootPath)
	assert.Nil(t, meta.LastUpdatedAt)
}

func TestBuild_HashOfHashInvariant(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt":     "alpha",
		"b.txt":     "bravo",
		"sub/c.txt": "charlie",
	})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	store := f.openStore(t)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	paths, err := tx.Paths()
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// For every stored record, hash_of_hash == Digest(hash).
	for _, p := range paths {
		rec, err := tx.Lookup(p)
		require.NoError(t, err)
		require.NotNil(t, rec, p)

		want := sha1.Sum(rec.Hash)
		assert.Equal(t, want[:], rec.HashOfHash, "hash_of_hash invariant broken for %s", p)
	}
}

func TestBuild_RecordsMatchContent(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "known content"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	store := f.openStore(t)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	rec, err := tx.Lookup("a.txt")
	require.NoError(t, err)
	require.NotNil(t, rec)

	want := sha1.Sum([]byte("known content"))
	assert.Equal(t, want[:], rec.Hash)
	assert.Equal(t, int64(len("known content")), rec.Size)
	assert.Positive(t, rec.Modified)
}

func TestBuild_RefusesExistingCatalog(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	_, err = f.engine.Build(context.Background())
	require.ErrorIs(t, err, catalog.ErrExists)
}

func TestBuild_EmptyRootIsPreconditionFailure(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.Build(context.Background())
	require.ErrorIs(t, err, ErrNoFiles)

	// The store must never have been opened.
	_, statErr := os.Stat(f.catalogPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "catalog created despite empty discovery")
}

func TestBuild_IsolatesUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	f := newFixture(t, map[string]string{
		"good.txt":   "readable",
		"locked.txt": "unreadable",
	})
	require.NoError(t, os.Chmod(f.root+"/locked.txt", 0o000))

	result, err := f.engine.Build(context.Background())
	require.NoError(t, err, "per-file failure must not abort the pass")

	assert.False(t, result.OK())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "locked.txt", result.Failures[0].Path)

	// The successes are still durable.
	store := f.openStore(t)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	rec, err := tx.Lookup("good.txt")
	require.NoError(t, err)
	assert.NotNil(t, rec)

	rec, err = tx.Lookup("locked.txt")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBuild_RecordsRunAudit(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	result, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	store := f.openStore(t)
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, result.Token, run.Token)
	assert.Equal(t, "build", run.Mode)
	assert.Equal(t, result.Files, run.Files)
	assert.Equal(t, result.Bytes, run.Bytes)
	assert.Greater(t, run.FinishedAt, run.StartedAt)
}
