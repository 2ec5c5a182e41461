// Package config loads, normalizes, and validates parley configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DATABRICKS_HOST and DATABRICKS_TOKEN. The Config type centralizes every knob
// the CLI and recording pipeline need: storage directories, the diarization
// endpoint, chunk sizing, and speaker matching thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
