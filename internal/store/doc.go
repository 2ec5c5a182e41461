// Package store persists recordings, their reconciled transcripts, and the
// final per-recording speaker reference sets in SQLite.
//
// Embeddings are stored as msgpack-encoded float64 arrays alongside their
// dimension. A recording's transcript and speakers are always written
// together in one transaction, so readers never observe a transcript whose
// labels disagree with the stored reference set.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package store
