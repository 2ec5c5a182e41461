// Package services defines shared utilities consumed by the recording
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp recording IDs, chunk indexes, stages, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified consistently (timeout vs validation vs external tool).
//
// Use these helpers when wiring new pipeline stages so error handling and
// observability stay uniform.
package services
