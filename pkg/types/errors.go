package types

import "errors"

// Error taxonomy for the indexing and query pipeline. Callers classify
// failures with errors.Is; packages wrap these with fmt.Errorf("%w: ...").
var (
	// ErrConfiguration indicates invalid caller-supplied parameters
	// (chunk size, overlap, topK). Never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingProvider indicates a transport, auth, or rate-limit
	// failure from an embedding backend. Callers may retry with backoff.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrDimensionMismatch indicates a vector whose dimensionality does not
	// match the store's fixed dimensionality. Never silently coerced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGenerationBackend indicates a failure from the LLM generation
	// backend. The query engine degrades gracefully instead of surfacing it.
	ErrGenerationBackend = errors.New("generation backend failed")

	// ErrStorage indicates a persistence I/O failure or a corrupt index.
	// Fatal to the operation attempting it.
	ErrStorage = errors.New("storage failure")
)

// Validation errors for result types.
var (
	ErrInvalidDocumentID = errors.New("invalid document ID")
	ErrInvalidChunkIndex = errors.New("chunk index must be >= 0")
)
