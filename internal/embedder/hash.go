package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension is the default dimensionality of the hash provider.
const DefaultHashDimension = 384

// HashProvider is the deterministic offline fallback embedder. It hashes
// normalized token unigrams and bigrams into fixed-size buckets, uses the
// bucket counts as vector components, and L2-normalizes the result. The
// same text yields a bit-identical vector across runs and processes, and
// textually similar strings land in overlapping buckets, which is enough
// for crude cosine-similarity clustering without any network access.
//
// It never fails on well-formed text; empty or token-free text maps to the
// zero vector, which has zero similarity to everything.
type HashProvider struct {
	dimension int
	cache     *Cache
}

// NewHashProvider creates a hash-based fallback embedder. A non-positive
// dimension selects DefaultHashDimension.
func NewHashProvider(dimension int, cache *Cache) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashProvider{dimension: dimension, cache: cache}
}

func (h *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ComputeHash(text)
	if h.cache != nil {
		if v, ok := h.cache.Get(hash); ok {
			return v, nil
		}
	}

	vector := h.bucketVector(text)

	if h.cache != nil {
		h.cache.Set(hash, vector)
	}
	return vector, nil
}

func (h *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// bucketVector computes the unnormalized bucket counts and L2-normalizes.
func (h *HashProvider) bucketVector(text string) []float32 {
	vector := make([]float32, h.dimension)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vector
	}

	for i, tok := range tokens {
		vector[h.bucket(tok)]++
		if i+1 < len(tokens) {
			vector[h.bucket(tok+" "+tokens[i+1])]++
		}
	}

	return normalizeVector(vector)
}

// bucket maps an n-gram to a vector index via FNV-1a.
func (h *HashProvider) bucket(ngram string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(ngram))
	return int(f.Sum32() % uint32(h.dimension))
}

func (h *HashProvider) Dimension() int {
	return h.dimension
}

func (h *HashProvider) Provider() string {
	return ProviderHash
}

func (h *HashProvider) Model() string {
	return "token-ngram-buckets"
}

func (h *HashProvider) Close() error {
	return nil
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeVector scales a vector to unit length. Zero vectors pass
// through unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	for i, val := range v {
		v[i] = val / norm
	}
	return v
}
