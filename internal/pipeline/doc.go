// Package pipeline runs one recording's chunks through the diarization
// endpoint, strictly in order, reconciling each chunk's speakers against the
// recording's reference set before the next chunk is sent.
//
// The Orchestrator moves through not_started, then processing_chunk,
// reconciling, and merged for each chunk, and ends in done or failed. Any
// chunk failure fails the whole run and discards partial output. Context
// cancellation is honoured between chunks only; an in-flight chunk is
// bounded by the per-chunk timeout instead.
package pipeline
