package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. Endpoint credentials are
// checked separately by ValidateDiarization so read-only commands work
// without them.
func (c *Config) Validate() error {
	if err := c.validateDiarizationTimeout(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateDiarization checks that the serving endpoint is fully configured.
func (c *Config) ValidateDiarization() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	if c.Diarization.BaseURL == "" {
		return fmt.Errorf("diarization.base_url is required. Set DATABRICKS_HOST or edit %s (create with 'parley config init')", defaultPath)
	}
	if _, err := url.ParseRequestURI(c.Diarization.BaseURL); err != nil {
		return fmt.Errorf("diarization.base_url is invalid: %w", err)
	}
	if c.Diarization.Endpoint == "" {
		return errors.New("diarization.endpoint must be set")
	}
	if c.Diarization.Token == "" {
		return fmt.Errorf("diarization.token is required. Set DATABRICKS_TOKEN or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateDiarizationTimeout() error {
	if c.Diarization.TimeoutSeconds <= 0 {
		return errors.New("diarization.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.MaxRequestBytes <= 0 {
		return errors.New("audio.max_request_bytes must be positive")
	}
	if c.Audio.MinChunkSeconds <= 0 {
		return errors.New("audio.min_chunk_seconds must be positive")
	}
	if c.Audio.FixedChunking && c.Audio.FixedChunkSeconds <= 0 {
		return errors.New("audio.fixed_chunk_seconds must be positive when fixed_chunking is enabled")
	}
	if c.Audio.MaxUploadBytes <= 0 {
		return errors.New("audio.max_upload_bytes must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.SimilarityThreshold < -1 || c.Matching.SimilarityThreshold > 1 {
		return errors.New("matching.similarity_threshold must be between -1 and 1")
	}
	if c.Matching.EmbeddingDim < 0 {
		return errors.New("matching.embedding_dim must be zero or positive")
	}
	switch c.Matching.Labeling {
	case "interview", "numbered":
	default:
		return fmt.Errorf("matching.labeling: unsupported value %q (use interview or numbered)", c.Matching.Labeling)
	}
	switch c.Matching.MissingEmbedding {
	case "passthrough", "unknown":
	default:
		return fmt.Errorf("matching.missing_embedding: unsupported value %q (use passthrough or unknown)", c.Matching.MissingEmbedding)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.MaxParallelRecordings <= 0 {
		return errors.New("workers.max_parallel_recordings must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation values must not be negative")
	}
	return nil
}
