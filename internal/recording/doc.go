// Package recording drives a stored recording through conversion, chunking,
// diarization with cross-chunk speaker reconciliation, and persistence.
//
// Service.Process holds a per-recording file lock for the whole run so two
// processes can never reconcile the same recording at once. Every run builds
// a fresh reference set; nothing carries over from earlier attempts.
package recording
