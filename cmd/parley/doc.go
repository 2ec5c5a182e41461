// Command parley registers interview recordings, sends them through the
// diarization endpoint chunk by chunk, and reconciles speaker identities
// across chunks.
//
// Recordings and their reconciled transcripts live in a local SQLite
// database. Typical use:
//
//	parley process interview.m4a
//	parley show 3f9c
//	parley speakers 3f9c
package main
