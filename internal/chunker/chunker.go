package chunker

import (
	"fmt"

	"github.com/mhollis/knowbase/pkg/types"
)

const (
	// DefaultChunkSize is the default window size in runes.
	DefaultChunkSize = 500

	// DefaultOverlap is the default number of runes repeated between
	// consecutive windows.
	DefaultOverlap = 50
)

// Chunker splits raw document text into overlapping fixed-size windows.
// Window boundaries are measured in runes so multi-byte text never splits
// mid-character.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given window size and overlap, both in
// runes. overlap must be smaller than size or windows would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", types.ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be >= 0, got %d", types.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", types.ErrConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a Chunker with the default size and overlap.
func Default() *Chunker {
	c, err := New(DefaultChunkSize, DefaultOverlap)
	if err != nil {
		// Defaults always satisfy overlap < size.
		panic(err)
	}
	return c
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Split produces the ordered chunk sequence for a document. Windows start
// at offsets 0, size-overlap, 2*(size-overlap), ... and the final chunk
// takes the remaining tail, which may be shorter than size but never empty.
// Empty text yields zero chunks. Split is a pure function of its arguments:
// repeated calls produce identical output.
func (c *Chunker) Split(documentID, text string) []types.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := c.size - c.overlap

	chunks := make([]types.Chunk, 0, (len(runes)+stride-1)/stride)
	for start, index := 0, 0; start < len(runes); start, index = start+stride, index+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, types.Chunk{
			DocumentID: documentID,
			Index:      index,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
