// Package store is the vector store: an in-memory record set searched by
// exact cosine similarity, backed by SQLite so the index survives
// restarts.
//
// Every mutation writes through to the database in a single transaction
// before touching memory, so a failed write leaves both views unchanged.
// The store fixes its vector dimensionality on first insert and rejects
// anything that does not match. Search ranks by descending similarity
// with insertion order breaking ties, which keeps results deterministic.
//
// Two SQLite drivers are supported via build tags: modernc.org/sqlite
// (pure Go, the default) and mattn/go-sqlite3 (cgo_sqlite tag).
package store
