// Package speakers keeps speaker identities consistent across the chunks of
// one long recording.
//
// A ReferenceSet accumulates one voice embedding per canonical speaker label.
// The first chunk that carries embeddings seeds it; every later chunk is
// passed through a Reconciler, which matches the chunk's local speakers to
// canonical labels by cosine similarity (greedy, highest similarity first)
// and mints fresh labels for voices that clear no existing reference.
// LabelPolicy decides what canonical labels look like, and MissingPolicy
// decides what to call a speaker that spoke without yielding an embedding.
//
// None of the types here are safe for concurrent use; one recording run owns
// one ReferenceSet.
package speakers
