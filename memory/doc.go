// Package memory implements the opt-in semantic memory store: exact
// nearest-neighbor search over fixed-dimension embeddings of past interview
// Q&A, with index-aligned metadata and synchronous disk persistence.
//
// The underlying flat index has no deletion primitive, mirroring exact-search
// indexes like FAISS IndexFlatL2. Session deletion therefore rebuilds the
// whole store, re-embedding every retained record. That is O(n) embedding
// calls per deletion, an accepted cost since deletions are rare session-level
// opt-out events. Do not replace this with an incremental-delete structure
// without also revisiting the persistence format.
package memory
