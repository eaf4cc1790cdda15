package types

import (
	"errors"
	"fmt"
)

// Chunk represents a contiguous window of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	// DocumentID is the identifier of the owning document (path, URL, or label).
	DocumentID string

	// Index is the zero-based position of the chunk within the document.
	// Ordering is significant: chunks sorted by Index reconstruct the
	// document text modulo the configured overlap.
	Index int

	// Start and End are rune offsets of the window within the document text.
	Start int
	End   int

	// Text is the chunk content.
	Text string
}

// RecordID returns the stable store key for the chunk: documentID#index.
func (c *Chunk) RecordID() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.Index)
}

// Validate checks structural invariants of the chunk.
func (c *Chunk) Validate() error {
	if c.DocumentID == "" {
		return errors.New("chunk document ID cannot be empty")
	}
	if c.Index < 0 {
		return errors.New("chunk index must be >= 0")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.Start < 0 || c.End <= c.Start {
		return errors.New("chunk offsets must satisfy 0 <= start < end")
	}
	return nil
}
