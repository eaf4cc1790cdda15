package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProvider_Deterministic(t *testing.T) {
	ctx := context.Background()

	// Two independent instances must agree, which also covers
	// cross-process determinism: there is no per-instance state.
	p1 := NewHashProvider(DefaultHashDimension, nil)
	p2 := NewHashProvider(DefaultHashDimension, nil)

	text := "The cat slept on the warm mat."
	v1, err := p1.Embed(ctx, text)
	require.NoError(t, err)
	v2, err := p2.Embed(ctx, text)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, DefaultHashDimension)
}

func TestHashProvider_UnitNorm(t *testing.T) {
	p := NewHashProvider(128, nil)
	v, err := p.Embed(context.Background(), "some meaningful text with several tokens")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestHashProvider_EmptyTextZeroVector(t *testing.T) {
	p := NewHashProvider(64, nil)

	for _, text := range []string{"", "   ", "...!!!"} {
		v, err := p.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, v, 64)
		for _, x := range v {
			assert.Zero(t, x)
		}
	}
}

func TestHashProvider_BatchMatchesSingle(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(DefaultHashDimension, nil)

	texts := []string{"first chunk", "second chunk", "third chunk"}
	batch, err := p.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := p.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestHashProvider_SimilarTextsScoreHigher(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(DefaultHashDimension, nil)

	query, err := p.Embed(ctx, "Where did the cat sleep?")
	require.NoError(t, err)
	related, err := p.Embed(ctx, "The cat slept on the mat.")
	require.NoError(t, err)
	unrelated, err := p.Embed(ctx, "Quarterly revenue grew by twelve percent.")
	require.NoError(t, err)

	assert.Greater(t, dotProduct(query, related), dotProduct(query, unrelated))
}

func TestHashProvider_Metadata(t *testing.T) {
	p := NewHashProvider(0, nil)
	assert.Equal(t, DefaultHashDimension, p.Dimension())
	assert.Equal(t, ProviderHash, p.Provider())
	assert.NotEmpty(t, p.Model())
	assert.NoError(t, p.Close())
}

func TestCache_RoundTrip(t *testing.T) {
	cache := NewCache(4)
	hash := ComputeHash("some text")

	_, ok := cache.Get(hash)
	assert.False(t, ok)

	cache.Set(hash, []float32{1, 2, 3})
	v, ok := cache.Get(hash)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	// Mutating the returned copy must not pollute the cache.
	v[0] = 99
	again, ok := cache.Get(hash)
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])

	assert.Equal(t, 1, cache.Size())
	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

// dotProduct is sufficient for comparing unit vectors in tests.
func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
