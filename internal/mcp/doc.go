// Package mcp exposes the knowledge base over the Model Context Protocol
// on stdio. Four tools cover the pipeline: index_document, query,
// delete_document, and get_stats.
//
// This layer owns the concerns the core components deliberately do not:
// reading document files from disk, serializing results for the protocol,
// rejecting concurrent indexing requests, and retrying transient embedding
// failures with exponential backoff.
package mcp
