// Package embedder generates vector embeddings for text chunks.
//
// Two providers implement the Embedder interface:
//
//   - RemoteProvider calls an OpenAI-compatible embeddings API
//     (OpenRouter by default) with a caller-supplied credential. It does
//     not retry; transient failures surface as types.ErrEmbeddingProvider
//     and retry policy belongs to the caller.
//
//   - HashProvider derives a deterministic vector from hashed token
//     n-grams with no network dependency, so indexing and search work
//     offline. The same text always produces a bit-identical vector.
//
// Provider selection happens once at configuration time via New or
// NewFromEnv; both providers support batch embedding and share an
// optional LRU cache keyed by content hash.
package embedder
