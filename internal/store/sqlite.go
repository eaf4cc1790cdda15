package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mhollis/knowbase/pkg/types"
)

// dbHandle wraps the SQLite connection behind the store's persistence
// operations. Every mutating method runs in a single transaction so the
// in-memory state and the database never diverge on failure.
type dbHandle struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*dbHandle, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStorage, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL mode: %v", types.ErrStorage, err)
	}

	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", types.ErrStorage, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrStorage, err)
	}

	return &dbHandle{db: db}, nil
}

// Close closes the database connection
func (h *dbHandle) Close() error {
	return h.db.Close()
}

const insertRecordSQL = `
	INSERT INTO records (id, document_id, chunk_index, start_offset, end_offset,
		content, vector, dimension, source_type, ingested_at, metadata, seq)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertRecordTx(ctx context.Context, tx *sql.Tx, r *Record) error {
	var metadata []byte
	if len(r.Meta.Extra) > 0 {
		var err error
		metadata, err = json.Marshal(r.Meta.Extra)
		if err != nil {
			return fmt.Errorf("%w: marshal metadata for %s: %v", types.ErrStorage, r.ID(), err)
		}
	}

	var ingestedAt interface{}
	if !r.Meta.IngestedAt.IsZero() {
		ingestedAt = r.Meta.IngestedAt.UTC()
	}

	_, err := tx.ExecContext(ctx, insertRecordSQL,
		r.ID(), r.Chunk.DocumentID, r.Chunk.Index, r.Chunk.Start, r.Chunk.End,
		r.Chunk.Text, serializeVector(r.Vector), len(r.Vector),
		r.Meta.SourceType, ingestedAt, metadata, r.seq)
	if err != nil {
		return fmt.Errorf("%w: insert record %s: %v", types.ErrStorage, r.ID(), err)
	}
	return nil
}

// insertRecords writes a batch of records in one transaction.
func (h *dbHandle) insertRecords(ctx context.Context, records []*Record) error {
	return h.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := insertRecordTx(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteDocument removes all records for a document in one transaction.
func (h *dbHandle) deleteDocument(ctx context.Context, documentID string) error {
	return h.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("%w: delete document %s: %v", types.ErrStorage, documentID, err)
		}
		return nil
	})
}

// replaceDocument deletes a document's records and inserts its replacement
// batch in the same transaction.
func (h *dbHandle) replaceDocument(ctx context.Context, documentID string, records []*Record) error {
	return h.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("%w: delete document %s: %v", types.ErrStorage, documentID, err)
		}
		for _, r := range records {
			if err := insertRecordTx(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// rewriteRecords replaces the full table contents with the given record set.
func (h *dbHandle) rewriteRecords(ctx context.Context, records []*Record) error {
	return h.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
			return fmt.Errorf("%w: clear records: %v", types.ErrStorage, err)
		}
		for _, r := range records {
			if err := insertRecordTx(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// loadRecords reads the full record set in insertion order.
func (h *dbHandle) loadRecords(ctx context.Context) ([]*Record, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, start_offset, end_offset,
			content, vector, dimension, source_type, ingested_at, metadata, seq
		FROM records ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: load records: %v", types.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		var (
			id         string
			r          Record
			vectorBlob []byte
			dimension  int
			sourceType sql.NullString
			ingestedAt sql.NullTime
			metadata   []byte
		)
		if err := rows.Scan(&id, &r.Chunk.DocumentID, &r.Chunk.Index,
			&r.Chunk.Start, &r.Chunk.End, &r.Chunk.Text,
			&vectorBlob, &dimension, &sourceType, &ingestedAt, &metadata, &r.seq); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", types.ErrStorage, err)
		}

		if len(vectorBlob)%4 != 0 || len(vectorBlob)/4 != dimension {
			return nil, fmt.Errorf("%w: corrupt vector blob for record %s", types.ErrStorage, id)
		}
		r.Vector = deserializeVector(vectorBlob)

		r.Meta.SourceType = sourceType.String
		if ingestedAt.Valid {
			r.Meta.IngestedAt = ingestedAt.Time.UTC()
		} else {
			r.Meta.IngestedAt = time.Time{}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Meta.Extra); err != nil {
				return nil, fmt.Errorf("%w: corrupt metadata for record %s: %v", types.ErrStorage, id, err)
			}
		}

		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load records: %v", types.ErrStorage, err)
	}
	return records, nil
}

func (h *dbHandle) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrStorage, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", types.ErrStorage, err)
	}
	return nil
}
