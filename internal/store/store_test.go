package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhollis/knowbase/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(docID string, index int, vector []float32) Record {
	return Record{
		Chunk: types.Chunk{
			DocumentID: docID,
			Index:      index,
			Start:      index * 10,
			End:        index*10 + 10,
			Text:       "chunk text",
		},
		Vector: vector,
		Meta: types.DocumentMeta{
			SourceType: "test",
			IngestedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{
		testRecord("a", 0, []float32{1, 0, 0}),
		testRecord("b", 0, []float32{0, 1, 0}),
		testRecord("c", 0, []float32{0.9, 0.1, 0}),
	}))

	results, err := s.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)

	// topK larger than the store clamps to size.
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Record.Chunk.DocumentID)
	assert.Equal(t, "c", results[1].Record.Chunk.DocumentID)
	assert.Equal(t, "b", results[2].Record.Chunk.DocumentID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestStore_SearchTieBreakInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Identical vectors score identically against any query, so ranking
	// among them must follow insertion order.
	require.NoError(t, s.Insert(ctx, []Record{
		testRecord("second-doc", 0, []float32{0, 1, 0}),
		testRecord("first-doc", 0, []float32{1, 0, 0}),
		testRecord("third-doc", 0, []float32{1, 0, 0}),
	}))

	results, err := s.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first-doc", results[0].Record.Chunk.DocumentID)
	assert.Equal(t, "third-doc", results[1].Record.Chunk.DocumentID)
	assert.Equal(t, "second-doc", results[2].Record.Chunk.DocumentID)
}

func TestStore_SearchValidation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Search([]float32{1, 0, 0}, 0)
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	// Empty store returns no results regardless of query dimension.
	results, err := s.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, s.Insert(ctx, []Record{testRecord("a", 0, []float32{1, 0, 0})}))
	_, err = s.Search([]float32{1, 0}, 5)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
}

func TestStore_InsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{testRecord("a", 0, make([]float32, 384))}))
	assert.Equal(t, 384, s.Dimension())

	err := s.Insert(ctx, []Record{testRecord("b", 0, make([]float32, 256))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
	assert.Equal(t, 1, s.Size(), "failed insert must not change the store")
}

func TestStore_InsertBatchAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.Insert(ctx, []Record{
		testRecord("a", 0, []float32{1, 0, 0}),
		testRecord("a", 1, []float32{1, 0}), // wrong dimension
	})
	require.Error(t, err)
	assert.Equal(t, 0, s.Size())
}

func TestStore_InsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{testRecord("a", 0, []float32{1, 0, 0})}))
	err := s.Insert(ctx, []Record{testRecord("a", 0, []float32{0, 1, 0})})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStorage))
	assert.Equal(t, 1, s.Size())
}

func TestStore_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{
		testRecord("keep", 0, []float32{1, 0, 0}),
		testRecord("drop", 0, []float32{0, 1, 0}),
		testRecord("drop", 1, []float32{0, 0, 1}),
	}))

	require.NoError(t, s.DeleteDocument(ctx, "drop"))
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 1, s.DocumentCount())

	// Deleting an absent document is a no-op.
	require.NoError(t, s.DeleteDocument(ctx, "never-indexed"))
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 1, s.DocumentCount())
}

func TestStore_ReplaceDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{
		testRecord("doc", 0, []float32{1, 0, 0}),
		testRecord("doc", 1, []float32{0, 1, 0}),
		testRecord("doc", 2, []float32{0, 0, 1}),
		testRecord("other", 0, []float32{1, 1, 0}),
	}))

	// Re-index with fewer chunks: stale chunk 2 must disappear.
	require.NoError(t, s.ReplaceDocument(ctx, "doc", []Record{
		testRecord("doc", 0, []float32{0, 0, 1}),
		testRecord("doc", 1, []float32{0, 0, 1}),
	}))

	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 2, s.DocumentCount())

	results, err := s.Search([]float32{0, 0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc", results[0].Record.Chunk.DocumentID)
	assert.Equal(t, 0, results[0].Record.Chunk.Index)
	assert.Equal(t, "doc", results[1].Record.Chunk.DocumentID)
	assert.Equal(t, 1, results[1].Record.Chunk.Index)
}

func TestStore_ReplaceDocumentFailureKeepsPrior(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Insert(ctx, []Record{testRecord("doc", 0, []float32{1, 0, 0})}))

	err := s.ReplaceDocument(ctx, "doc", []Record{testRecord("doc", 0, []float32{1, 0})})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))

	results, err := s.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9, "prior version must remain searchable")
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, Options{})
	require.NoError(t, err)

	rec := testRecord("doc", 0, []float32{0.5, 0.5, 0})
	rec.Meta.Extra = map[string]string{"lang": "en"}
	require.NoError(t, s.Insert(ctx, []Record{
		rec,
		testRecord("doc", 1, []float32{1, 0, 0}),
		testRecord("other", 0, []float32{1, 0, 0}),
	}))

	before, err := s.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, Options{})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.Equal(t, 3, reopened.Size())
	assert.Equal(t, 2, reopened.DocumentCount())
	assert.Equal(t, 3, reopened.Dimension())

	after, err := reopened.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Record.ID(), after[i].Record.ID())
		assert.InDelta(t, before[i].Score, after[i].Score, 1e-9)
	}

	loaded := after[len(after)-1].Record
	assert.Equal(t, "doc", loaded.Chunk.DocumentID)
	assert.Equal(t, map[string]string{"lang": "en"}, loaded.Meta.Extra)
	assert.Equal(t, "test", loaded.Meta.SourceType)
	assert.True(t, loaded.Meta.IngestedAt.Equal(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)))
}

func TestVector_SerializeRoundTrip(t *testing.T) {
	vector := []float32{0.1, -2.5, 0, 1e-7, 12345.678}
	blob := SerializeVector(vector)
	assert.Len(t, blob, len(vector)*4)
	assert.Equal(t, vector, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Zero-norm vectors score 0 rather than dividing by zero.
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	// Mismatched lengths score 0.
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 0}))
}
