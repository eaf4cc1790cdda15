// Package types defines the shared data model for the knowledge base:
// chunks, document metadata, query answers with provenance, and the
// error taxonomy used across the indexing and query pipeline.
package types
