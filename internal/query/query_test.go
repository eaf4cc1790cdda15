package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhollis/knowbase/internal/chunker"
	"github.com/mhollis/knowbase/internal/embedder"
	"github.com/mhollis/knowbase/internal/indexer"
	"github.com/mhollis/knowbase/internal/store"
	"github.com/mhollis/knowbase/pkg/types"
)

// stubBackend records the prompt it receives and returns a canned answer.
type stubBackend struct {
	answer     string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubBackend) Generate(ctx context.Context, system, user string) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubBackend) Model() string { return "stub" }

func newTestPipeline(t *testing.T, backend *stubBackend) (*Engine, *indexer.Indexer) {
	t.Helper()

	ch, err := chunker.New(20, 5)
	require.NoError(t, err)

	st, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := embedder.NewHashProvider(embedder.DefaultHashDimension, nil)
	idx := indexer.New(ch, emb, st, nil)

	if backend == nil {
		return New(emb, st, nil), idx
	}
	return New(emb, st, backend), idx
}

func TestEngine_CatMatExample(t *testing.T) {
	ctx := context.Background()
	engine, idx := newTestPipeline(t, nil)

	count, err := idx.IndexDocument(ctx, "cats.txt", "A cat sat on the mat. The cat slept.", types.DocumentMeta{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 2)

	answer, err := engine.Answer(ctx, "Where did the cat sleep?", 5, false)
	require.NoError(t, err)

	// topK=5 clamps to the store's size.
	assert.Len(t, answer.Sources, count)
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Sources[0].Text, "slept",
		"the chunk mentioning the answer must rank first")
	for i := 1; i < len(answer.Sources); i++ {
		assert.GreaterOrEqual(t, answer.Sources[i-1].Score, answer.Sources[i].Score)
	}
}

func TestEngine_TopKValidation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestPipeline(t, nil)

	_, err := engine.Answer(ctx, "anything", 0, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = engine.Answer(ctx, "anything", -3, false)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestEngine_EmptyStore(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestPipeline(t, nil)

	answer, err := engine.Answer(ctx, "anything at all", 5, false)
	require.NoError(t, err)
	assert.Equal(t, NoResultsAnswer, answer.Text)
	assert.False(t, answer.Generated)
	assert.Empty(t, answer.Sources)
}

func TestEngine_Generation(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{answer: "The cat slept on the mat."}
	engine, idx := newTestPipeline(t, backend)

	_, err := idx.IndexDocument(ctx, "cats.txt", "A cat sat on the mat. The cat slept.", types.DocumentMeta{})
	require.NoError(t, err)

	answer, err := engine.Answer(ctx, "Where did the cat sleep?", 3, true)
	require.NoError(t, err)

	assert.True(t, answer.Generated)
	assert.Equal(t, "The cat slept on the mat.", answer.Text)
	assert.NotEmpty(t, answer.Sources, "provenance is returned even for generated answers")

	// The prompt carries the query and per-source attributed context.
	assert.Contains(t, backend.lastUser, "Where did the cat sleep?")
	assert.Contains(t, backend.lastUser, "[Source: cats.txt#")
	assert.NotEmpty(t, backend.lastSystem)
}

func TestEngine_GenerationFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{err: fmt.Errorf("%w: upstream timeout", types.ErrGenerationBackend)}
	engine, idx := newTestPipeline(t, backend)

	_, err := idx.IndexDocument(ctx, "cats.txt", "A cat sat on the mat. The cat slept.", types.DocumentMeta{})
	require.NoError(t, err)

	answer, err := engine.Answer(ctx, "Where did the cat sleep?", 3, true)
	require.NoError(t, err, "backend failure must not fail the query")

	assert.False(t, answer.Generated)
	assert.True(t, strings.HasPrefix(answer.Text, answer.Sources[0].Text),
		"fallback answer starts with the top chunk verbatim")
	assert.NotEmpty(t, answer.Sources)
}

func TestEngine_GenerationFlagOff(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{answer: "should not be used"}
	engine, idx := newTestPipeline(t, backend)

	_, err := idx.IndexDocument(ctx, "doc", "some indexed content here", types.DocumentMeta{})
	require.NoError(t, err)

	answer, err := engine.Answer(ctx, "content", 2, false)
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Empty(t, backend.lastUser, "backend must not be called when generation is off")
}
