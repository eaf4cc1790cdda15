package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mhollis/knowbase/pkg/types"
)

// DBFileName is the SQLite database file created under the store's base
// directory.
const DBFileName = "knowbase.db"

// Record is the persisted unit of the store: a chunk, its embedding
// vector, and the owning document's metadata.
type Record struct {
	Chunk  types.Chunk
	Vector []float32
	Meta   types.DocumentMeta

	// seq is the insertion sequence number, the tie-break key for equal
	// similarity scores. Assigned by the store.
	seq int64
}

// ID returns the stable record identifier (documentID#chunkIndex).
func (r *Record) ID() string {
	return r.Chunk.RecordID()
}

// SearchResult pairs a record with its similarity score.
type SearchResult struct {
	Record *Record
	Score  float64
}

// Options configures a Store.
type Options struct {
	// Dimension fixes the vector dimensionality up front. Zero means the
	// first insert sets it.
	Dimension int
}

// Store holds chunk records in memory for exact cosine-similarity search
// and writes every mutation through to SQLite so state survives restarts.
//
// A single RWMutex guards the record set: mutations (insert, delete,
// replace, flush) are mutually exclusive, searches share the read lock and
// observe a consistent snapshot. Embedding calls belong outside the lock;
// only the store mutation itself is serialized.
type Store struct {
	mu        sync.RWMutex
	db        *dbHandle
	dimension int
	records   []*Record
	ids       map[string]struct{}
	nextSeq   int64
}

// Open creates or opens the store rooted at baseDir and loads the full
// record set from durable storage.
func Open(baseDir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %v", types.ErrStorage, err)
	}

	db, err := openDatabase(filepath.Join(baseDir, DBFileName))
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		dimension: opts.Dimension,
		ids:       make(map[string]struct{}),
	}

	if err := s.Load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dimension returns the store's fixed vector dimensionality, or zero when
// the store is empty and unconfigured.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Size returns the number of records held.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DocumentCount returns the number of distinct document identifiers.
func (s *Store) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countDocumentsLocked()
}

func (s *Store) countDocumentsLocked() int {
	docs := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		docs[r.Chunk.DocumentID] = struct{}{}
	}
	return len(docs)
}

// Insert stores a batch of records atomically: every vector is validated
// against the store's dimensionality first, and on any failure nothing is
// stored, in memory or on disk. The first insert into an unconfigured
// store fixes the dimensionality.
func (s *Store) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(ctx, records)
}

func (s *Store) insertLocked(ctx context.Context, records []Record) error {
	dim := s.dimension
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for i := range records {
		if len(records[i].Vector) != dim {
			return fmt.Errorf("%w: record %s has %d dimensions, store requires %d",
				types.ErrDimensionMismatch, records[i].ID(), len(records[i].Vector), dim)
		}
		if _, exists := s.ids[records[i].ID()]; exists {
			return fmt.Errorf("%w: duplicate record id %s", types.ErrStorage, records[i].ID())
		}
	}

	inserted := make([]*Record, len(records))
	seq := s.nextSeq
	for i := range records {
		r := records[i]
		r.seq = seq
		seq++
		inserted[i] = &r
	}

	if err := s.db.insertRecords(ctx, inserted); err != nil {
		return err
	}

	s.dimension = dim
	s.nextSeq = seq
	for _, r := range inserted {
		s.records = append(s.records, r)
		s.ids[r.ID()] = struct{}{}
	}
	return nil
}

// DeleteDocument removes every record belonging to documentID. Deleting an
// absent document is a no-op, not an error.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteDocumentLocked(ctx, documentID)
}

func (s *Store) deleteDocumentLocked(ctx context.Context, documentID string) error {
	found := false
	for _, r := range s.records {
		if r.Chunk.DocumentID == documentID {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	if err := s.db.deleteDocument(ctx, documentID); err != nil {
		return err
	}

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Chunk.DocumentID == documentID {
			delete(s.ids, r.ID())
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return nil
}

// ReplaceDocument deletes documentID's prior records and inserts the new
// batch under one critical section and one database transaction, so old
// chunks are never visible alongside new ones and a failed insert leaves
// the prior version intact.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 && len(records) > 0 {
		dim = len(records[0].Vector)
	}
	for i := range records {
		if len(records[i].Vector) != dim {
			return fmt.Errorf("%w: record %s has %d dimensions, store requires %d",
				types.ErrDimensionMismatch, records[i].ID(), len(records[i].Vector), dim)
		}
	}

	replaced := make([]*Record, len(records))
	seq := s.nextSeq
	for i := range records {
		r := records[i]
		r.seq = seq
		seq++
		replaced[i] = &r
	}

	if err := s.db.replaceDocument(ctx, documentID, replaced); err != nil {
		return err
	}

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Chunk.DocumentID == documentID {
			delete(s.ids, r.ID())
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept

	if len(replaced) > 0 {
		s.dimension = dim
	}
	s.nextSeq = seq
	for _, r := range replaced {
		s.records = append(s.records, r)
		s.ids[r.ID()] = struct{}{}
	}
	return nil
}

// Search returns up to topK records ordered by descending cosine
// similarity to queryVector. Equal scores rank by insertion order, so
// results are deterministic. topK larger than the store clamps; zero-norm
// vectors score 0.
func (s *Store) Search(queryVector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", types.ErrConfiguration, topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store requires %d",
			types.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	results := make([]SearchResult, len(s.records))
	for i, r := range s.records {
		results[i] = SearchResult{Record: r, Score: cosineSimilarity(queryVector, r.Vector)}
	}

	// s.records is in insertion order; the stable sort preserves that
	// order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Load replaces the in-memory record set with the full contents of durable
// storage. Corruption fails the load explicitly rather than producing a
// partial store.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.db.loadRecords(ctx)
	if err != nil {
		return err
	}

	dim := s.dimension
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: corrupt index: record %s has %d dimensions, expected %d",
				types.ErrStorage, r.ID(), len(r.Vector), dim)
		}
	}

	s.records = records
	s.ids = make(map[string]struct{}, len(records))
	s.nextSeq = 0
	for _, r := range records {
		s.ids[r.ID()] = struct{}{}
		if r.seq >= s.nextSeq {
			s.nextSeq = r.seq + 1
		}
	}
	if len(records) > 0 {
		s.dimension = dim
	}
	return nil
}

// Flush rewrites the full record set to durable storage. Ordinary
// mutations already write through; Flush exists for explicit
// checkpointing and for verifying the round-trip property.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.rewriteRecords(ctx, s.records)
}
