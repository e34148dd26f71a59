package recon

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/catalog/sqlite"
)

// corruptStoredHash flips bytes of a stored hash without touching
// hash_of_hash, simulating catalog corruption.
func corruptStoredHash(t *testing.T, catalogPath, rel string) {
	t.Helper()
	db, err := sql.Open("sqlite3", catalogPath)
	require.NoError(t, err)
	defer db.Close()

	res, err := db.Exec(`UPDATE files SET hash = ? WHERE path = ?`, make([]byte, 20), rel)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestVerify_RoundTripAllOk(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt":     "fifteen bytes!!",
		"sub/b.txt": "sixteen bytes!!!",
	})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Clean())
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt"}, result.Ok)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.HashMismatch)
	assert.Empty(t, result.FileChanged)
	assert.Empty(t, result.NotFound)
	assert.Empty(t, result.Missing)
	assert.Equal(t, int64(31), result.Bytes)
}

func TestVerify_TamperedContentIsFailed(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "original bytes!"})

	mtime := f.stamp(t, "a.txt")
	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	// Overwrite with equal-length content and reset the timestamps:
	// metadata looks untouched, content has diverged.
	f.write(t, "a.txt", "tampered bytes!")
	f.restamp(t, "a.txt", mtime)

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, result.Failed)
	assert.Empty(t, result.FileChanged, "tampering with reset timestamps must not look like a plain change")
	assert.Empty(t, result.Ok)
	assert.False(t, result.Clean())
}

func TestVerify_ChangedMetadataShortCircuits(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "original bytes!"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	f.write(t, "a.txt", "longer, different content")

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, result.FileChanged)
	assert.Empty(t, result.Failed)
	// Short-circuit: no content was hashed for the changed file.
	assert.Zero(t, result.Bytes)
}

func TestVerify_CorruptCatalogEntryIsHashMismatch(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt": "content stays untouched",
		"b.txt": "fine",
	})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	corruptStoredHash(t, f.catalogPath, "a.txt")

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	// Reported as catalog corruption even though the live content no
	// longer matches the (corrupted) stored hash either.
	assert.Equal(t, []string{"a.txt"}, result.HashMismatch)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []string{"b.txt"}, result.Ok)
}

func TestVerify_UncataloguedFileIsNotFound(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	f.write(t, "interloper.txt", "never catalogued")

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"interloper.txt"}, result.NotFound)
	assert.Equal(t, []string{"a.txt"}, result.Ok)
	assert.False(t, result.Clean())
}

func TestVerify_DeletedFileIsMissing(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.txt":     "stays",
		"gone.txt":  "will be deleted",
		"sub/c.txt": "stays too",
	})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.txt")))

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	// The reverse pass reports the deleted file by name instead of
	// silently skipping it.
	assert.Equal(t, []string{"gone.txt"}, result.Missing)
	assert.ElementsMatch(t, []string{"a.txt", "sub/c.txt"}, result.Ok)
	assert.False(t, result.Clean())
}

func TestVerify_MissingCatalogIsPreconditionFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	_, err := f.engine.Verify(context.Background())
	require.ErrorIs(t, err, catalog.ErrMissing)
}

func TestVerify_AlgorithmMismatchIsFatal(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	// A catalog claiming a different digest algorithm: comparisons
	// against it would be meaningless.
	s, err := sqlite.Create(f.catalogPath, &catalog.Meta{
		FormatVersion: catalog.FormatVersion,
		Algorithm:     "sha256",
		RootPath:      f.root,
		CreatedAt:     1700000000,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = f.engine.Verify(context.Background())
	require.ErrorIs(t, err, ErrAlgorithmMismatch)
}

func TestVerify_DoesNotMutateCatalog(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "original bytes!"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	f.write(t, "a.txt", "changed content, longer")

	_, err = f.engine.Verify(context.Background())
	require.NoError(t, err)

	// The record still attests the original content. The transaction is
	// released before the meta read: the store holds a single pooled
	// connection, so Meta would block behind an open Tx.
	store := f.openStore(t)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	rec, err := tx.Lookup("a.txt")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(len("original bytes!")), rec.Size)
	require.NoError(t, tx.Rollback())

	meta, err := store.Meta(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta.LastUpdatedAt, "verify must never touch last_updated_at")
}

func TestVerify_RecordsRunAudit(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "data"})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	result, err := f.engine.Verify(context.Background())
	require.NoError(t, err)

	store := f.openStore(t)
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2) // build + verify

	assert.Equal(t, result.Token, runs[0].Token)
	assert.Equal(t, "verify", runs[0].Mode)
}

func TestVerify_UpdateThenVerifyScenario(t *testing.T) {
	// Full scenario: build, verify clean, append a byte, update picks
	// up the change, verify is clean again against the new content.
	f := newFixture(t, map[string]string{
		"a.txt":     "fifteen bytes!!",
		"sub/b.txt": "sixteen bytes!!!",
	})

	_, err := f.engine.Build(context.Background())
	require.NoError(t, err)

	v1, err := f.engine.Verify(context.Background())
	require.NoError(t, err)
	require.True(t, v1.Clean())

	f.write(t, "a.txt", "fifteen bytes!!+")

	u, err := f.engine.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, u.Changed)
	require.Empty(t, u.New)

	v2, err := f.engine.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, v2.Clean(), "catalog must attest the refreshed content")
}
