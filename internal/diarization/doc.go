// Package diarization talks to the remote speaker diarization model served
// behind a Databricks-style model serving endpoint.
//
// One Diarize call sends one audio chunk (base64 WAV) plus, for chunks after
// the first, the recording's current reference embeddings as a hint. The
// endpoint answers with dialog text keyed by its local speaker labels, the
// raw transcription, and one voice embedding per local speaker.
//
// The client never retries: a failed call fails the chunk, and the caller
// fails the recording.
package diarization
