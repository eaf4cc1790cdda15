// Package query implements the retrieval-augmented answer pipeline:
// embed the query, rank stored chunks by cosine similarity, and optionally
// condition a generation backend on the retrieved context. Provenance is
// part of every answer.
package query
