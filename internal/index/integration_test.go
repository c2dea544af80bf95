package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/testutil"
)

const testDimensions = 8

// vec returns a test vector whose first component carries the value and the
// rest stays zero, giving predictable cosine distances.
func vec(parts ...float32) []float32 {
	v := make([]float32, testDimensions)
	copy(v, parts)
	return v
}

func setupStore(t *testing.T) (*Store, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	store, err := New(db.Pool, testDimensions, log.NewNop())
	require.NoError(t, err)
	return store, cleanup
}

func TestNamespaceIndependence(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	// Provision the prompt-log namespace first; the content namespace must
	// not come into existence as a side effect.
	require.NoError(t, store.EnsurePromptLog(ctx))

	exists, err := store.Exists(ctx, NamespacePromptLog)
	require.NoError(t, err)
	assert.True(t, exists, "prompt-log namespace should exist")

	exists, err = store.Exists(ctx, NamespaceContent)
	require.NoError(t, err)
	assert.False(t, exists, "content namespace should not be created implicitly")

	require.NoError(t, store.EnsureContent(ctx))
	exists, err = store.Exists(ctx, NamespaceContent)
	require.NoError(t, err)
	assert.True(t, exists)

	// Repeated provisioning is a no-op, not an error.
	require.NoError(t, store.EnsureContent(ctx))
	require.NoError(t, store.EnsurePromptLog(ctx))
}

func TestUpsertOverwrites(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	meta := map[string]string{"filename": "report.pdf", "source": "https://docs.example.com/report.pdf", "chunk": "0"}
	require.NoError(t, store.Upsert(ctx, "doc:1", "first version", meta, vec(1)))
	require.NoError(t, store.Upsert(ctx, "doc:1", "second version", meta, vec(1)))

	entries, err := store.GetAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "upsert under the same key must overwrite, not append")
	assert.Equal(t, "second version", entries[0].Content)
	assert.Equal(t, "report.pdf", entries[0].Metadata["filename"])
}

func TestSearchRankingAndTieBreak(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	meta := map[string]string{"filename": "a.pdf"}
	// doc:near points in almost the query direction, doc:far is orthogonal.
	require.NoError(t, store.Upsert(ctx, "doc:near", "near", meta, vec(1, 0.1)))
	require.NoError(t, store.Upsert(ctx, "doc:far", "far", meta, vec(0, 1)))
	// Two entries with identical vectors force the key tie-break.
	require.NoError(t, store.Upsert(ctx, "doc:tie-b", "tie b", meta, vec(0.5, 0.5)))
	require.NoError(t, store.Upsert(ctx, "doc:tie-a", "tie a", meta, vec(0.5, 0.5)))

	results, err := store.Search(ctx, vec(1), WithTopK(4))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "doc:near", results[0].Key)
	assert.Equal(t, "doc:far", results[3].Key)
	// Equal distances order by key.
	assert.Equal(t, "doc:tie-a", results[1].Key)
	assert.Equal(t, "doc:tie-b", results[2].Key)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
	}
}

func TestSearchEmptyNamespace(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	results, err := store.Search(ctx, vec(1))
	require.NoError(t, err, "empty namespace must not error")
	assert.Empty(t, results)

	entries, err := store.GetAll(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchWithFilter(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	require.NoError(t, store.Upsert(ctx, "doc:a", "from a",
		map[string]string{"filename": "a.pdf"}, vec(1)))
	require.NoError(t, store.Upsert(ctx, "doc:b", "from b",
		map[string]string{"filename": "b.pdf"}, vec(1, 0.01)))

	results, err := store.Search(ctx, vec(1), WithTopK(10), WithFilter("filename", "b.pdf"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc:b", results[0].Key)
}

func TestDeleteKeysToleratesMisses(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	meta := map[string]string{"filename": "a.pdf"}
	require.NoError(t, store.Upsert(ctx, "doc:keep", "keep", meta, vec(1)))
	require.NoError(t, store.Upsert(ctx, "doc:drop", "drop", meta, vec(1)))

	deleted, err := store.DeleteKeys(ctx, []string{"doc:drop", "doc:never-existed"})
	require.NoError(t, err, "deleting a missing key is a no-op")
	assert.Equal(t, int64(1), deleted)

	entries, err := store.GetAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc:keep", entries[0].Key)

	deleted, err = store.DeleteKeys(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteByPattern(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	meta := map[string]string{"filename": "a.pdf"}
	for _, key := range []string{"doc:a:0", "doc:a:1", "doc:b:0"} {
		require.NoError(t, store.Upsert(ctx, key, "content "+key, meta, vec(1)))
	}

	deleted, err := store.DeleteByPattern(ctx, "doc:a:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	entries, err := store.GetAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc:b:0", entries[0].Key)
}

func TestExistingKeys(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	require.NoError(t, store.Upsert(ctx, "doc:x", "x",
		map[string]string{"filename": "x.pdf"}, vec(1)))

	existing, err := store.ExistingKeys(ctx, []string{"doc:x", "doc:y"})
	require.NoError(t, err)
	assert.True(t, existing["doc:x"])
	assert.False(t, existing["doc:y"])

	existing, err = store.ExistingKeys(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestPromptLogLifecycle(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsurePromptLog(ctx))

	for _, id := range []string{"b1", "a2", "a1"} {
		require.NoError(t, store.AddPromptResult(ctx, PromptEntry{
			ID:       id,
			Filename: id + ".pdf",
			Prompt:   "Summarize " + id,
			Result:   "Summary for " + id,
		}))
	}

	entries, err := store.PromptResults(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Listing is sorted by id.
	assert.Equal(t, []string{"a1", "a2", "b1"},
		[]string{entries[0].ID, entries[1].ID, entries[2].ID})

	deleted, err := store.DeletePromptResults(ctx, "a*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	entries, err = store.PromptResults(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b1", entries[0].ID)

	// Listing limit caps the result set.
	require.NoError(t, store.AddPromptResult(ctx, PromptEntry{ID: "c1", Filename: "c.pdf"}))
	entries, err = store.PromptResults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpsertValidation(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, store.EnsureContent(ctx))

	err := store.Upsert(ctx, "", "content", nil, vec(1))
	assert.Error(t, err, "empty key must be rejected")

	err = store.Upsert(ctx, "doc:short", "content", nil, []float32{1, 2})
	assert.Error(t, err, "wrong vector width must be rejected")
}
