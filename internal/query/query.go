package query

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mhollis/knowbase/internal/embedder"
	"github.com/mhollis/knowbase/internal/llm"
	"github.com/mhollis/knowbase/internal/store"
	"github.com/mhollis/knowbase/pkg/types"
)

// DefaultTopK is the result count used when a caller does not specify one.
const DefaultTopK = 5

// NoResultsAnswer is returned when the store holds nothing relevant.
const NoResultsAnswer = "I don't have enough information to answer that. Please add some documents to the knowledge base first."

const systemInstruction = "You are a helpful AI assistant with access to a knowledge base."

const promptTemplate = `You are a helpful AI assistant answering questions based on a knowledge base.

Context from knowledge base:
%s

Question: %s

Instructions:
1. Use the context above to answer the question
2. If the context doesn't contain enough information, say so
3. Cite the sources when possible
4. Be concise but informative`

// Engine answers queries against the vector store: embed the query,
// retrieve the topK most similar chunks, and either synthesize an answer
// through the generation backend or concatenate the retrieved text.
//
// The query embedding must come from the same provider configuration that
// indexed the documents; a different dimensionality fails fast.
type Engine struct {
	embedder embedder.Embedder
	store    *store.Store
	backend  llm.Backend // nil means retrieval-only
}

// New creates a query engine. backend may be nil for retrieval-only mode.
func New(emb embedder.Embedder, st *store.Store, backend llm.Backend) *Engine {
	return &Engine{embedder: emb, store: st, backend: backend}
}

// Answer runs the full query pipeline. Generation failures degrade to the
// top retrieved chunk verbatim with Generated=false; provenance is always
// populated regardless of generation mode.
func (e *Engine) Answer(ctx context.Context, queryText string, topK int, useGeneration bool) (types.Answer, error) {
	if topK <= 0 {
		return types.Answer{}, fmt.Errorf("%w: topK must be positive, got %d", types.ErrConfiguration, topK)
	}

	queryVector, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return types.Answer{}, err
	}

	results, err := e.store.Search(queryVector, topK)
	if err != nil {
		return types.Answer{}, err
	}
	if len(results) == 0 {
		return types.Answer{Text: NoResultsAnswer}, nil
	}

	sources := make([]types.SourceRef, len(results))
	for i, r := range results {
		sources[i] = types.SourceRef{
			DocumentID: r.Record.Chunk.DocumentID,
			ChunkIndex: r.Record.Chunk.Index,
			Score:      r.Score,
			Text:       r.Record.Chunk.Text,
		}
	}

	if useGeneration && e.backend != nil {
		text, genErr := e.generate(ctx, queryText, sources)
		if genErr == nil {
			return types.Answer{Text: text, Generated: true, Sources: sources}, nil
		}
		log.Printf("generation failed, falling back to retrieval: %v", genErr)
	}

	return types.Answer{Text: synthesize(sources), Sources: sources}, nil
}

// generate asks the backend for an answer conditioned on the retrieved
// chunks, each attributed to its source document.
func (e *Engine) generate(ctx context.Context, queryText string, sources []types.SourceRef) (string, error) {
	var sb strings.Builder
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&sb, "[Source: %s#%d (relevance: %.2f)]\n%s",
			src.DocumentID, src.ChunkIndex, src.Score, src.Text)
	}

	prompt := fmt.Sprintf(promptTemplate, sb.String(), queryText)
	return e.backend.Generate(ctx, systemInstruction, prompt)
}

// synthesize builds a local answer from retrieved chunks: the top chunk
// verbatim, followed by the remaining sources for reference.
func synthesize(sources []types.SourceRef) string {
	var b strings.Builder
	b.WriteString(sources[0].Text)

	if len(sources) > 1 {
		b.WriteString("\n\nOther relevant sources:")
		for _, src := range sources[1:] {
			fmt.Fprintf(&b, "\n- %s#%d", src.DocumentID, src.ChunkIndex)
		}
	}
	return b.String()
}
