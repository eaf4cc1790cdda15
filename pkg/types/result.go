package types

// SourceRef identifies a retrieved chunk and its relevance score. Every
// answer lists its sources so callers can audit provenance regardless of
// generation mode.
type SourceRef struct {
	DocumentID string
	ChunkIndex int
	Score      float64
	Text       string
}

// Answer is the result of a query against the knowledge base.
type Answer struct {
	// Text is the answer: LLM-generated when Generated is true, otherwise
	// synthesized locally from the retrieved chunks.
	Text string

	// Generated reports whether Text came from the generation backend.
	// False when generation was disabled, unconfigured, or failed.
	Generated bool

	// Sources lists every retrieved chunk in descending score order.
	Sources []SourceRef
}

// Validate checks that a source reference is well formed.
func (s *SourceRef) Validate() error {
	if s.DocumentID == "" {
		return ErrInvalidDocumentID
	}
	if s.ChunkIndex < 0 {
		return ErrInvalidChunkIndex
	}
	return nil
}
