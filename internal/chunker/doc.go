// Package chunker splits document text into overlapping fixed-size windows
// for embedding and retrieval.
//
// Windows advance by (size - overlap) runes, so each chunk after the first
// repeats the trailing overlap of its predecessor. Removing those repeated
// regions and concatenating the chunks in index order reconstructs the
// original text exactly.
package chunker
