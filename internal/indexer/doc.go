// Package indexer orchestrates the indexing pipeline: split a document
// into chunks, embed them in concurrent bounded batches, and replace the
// document's records in the vector store as one atomic operation.
package indexer
