package indexer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mhollis/knowbase/internal/chunker"
	"github.com/mhollis/knowbase/internal/embedder"
	"github.com/mhollis/knowbase/internal/store"
	"github.com/mhollis/knowbase/pkg/types"
)

// DefaultEmbedBatchSize is the number of chunk texts sent to the embedding
// provider per batch call.
const DefaultEmbedBatchSize = 64

// Indexer coordinates the indexing pipeline: chunk -> embed -> store
type Indexer struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	store    *store.Store

	// Worker pool configuration
	workers   int
	batchSize int
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int // Number of concurrent embedding batches (default: runtime.NumCPU())
	BatchSize int // Number of chunks per embedding batch (default: DefaultEmbedBatchSize)
}

// Statistics describes the current state of the index.
type Statistics struct {
	Records   int
	Documents int
	Dimension int
	Provider  string
	Model     string
}

// New creates a new Indexer instance
func New(ch *chunker.Chunker, emb embedder.Embedder, st *store.Store, config *Config) *Indexer {
	idx := &Indexer{
		chunker:   ch,
		embedder:  emb,
		store:     st,
		workers:   runtime.NumCPU(),
		batchSize: DefaultEmbedBatchSize,
	}
	if config != nil {
		if config.Workers > 0 {
			idx.workers = config.Workers
		}
		if config.BatchSize > 0 {
			idx.batchSize = config.BatchSize
		}
	}
	if idx.batchSize > embedder.MaxBatchSize {
		idx.batchSize = embedder.MaxBatchSize
	}
	return idx
}

// IndexDocument chunks text, embeds every chunk, and replaces any prior
// version of the document in the store. It returns the number of chunks
// indexed. All embedding happens before the store is touched, so an
// embedding or dimension failure leaves the previously indexed version
// intact. Indexing empty text removes the document.
func (idx *Indexer) IndexDocument(ctx context.Context, documentID, text string, meta types.DocumentMeta) (int, error) {
	if documentID == "" {
		return 0, types.ErrInvalidDocumentID
	}

	chunks := idx.chunker.Split(documentID, text)
	if len(chunks) == 0 {
		if err := idx.store.ReplaceDocument(ctx, documentID, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if meta.IngestedAt.IsZero() {
		meta.IngestedAt = time.Now().UTC()
	}

	records := make([]store.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = store.Record{
			Chunk:  chunk,
			Vector: vectors[i],
			Meta:   meta,
		}
	}

	if err := idx.store.ReplaceDocument(ctx, documentID, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// embedChunks embeds all chunk texts in concurrent bounded batches,
// preserving chunk order in the result.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Text
			}

			batch, err := idx.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("%w: got %d vectors for %d chunks",
					types.ErrEmbeddingProvider, len(batch), len(texts))
			}
			for i, v := range batch {
				vectors[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// DeleteDocument removes a document from the store. Absent documents are a
// no-op.
func (idx *Indexer) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return types.ErrInvalidDocumentID
	}
	return idx.store.DeleteDocument(ctx, documentID)
}

// Stats reports the current index state.
func (idx *Indexer) Stats() Statistics {
	return Statistics{
		Records:   idx.store.Size(),
		Documents: idx.store.DocumentCount(),
		Dimension: idx.store.Dimension(),
		Provider:  idx.embedder.Provider(),
		Model:     idx.embedder.Model(),
	}
}
