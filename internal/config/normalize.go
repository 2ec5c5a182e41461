package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiarization()
	c.normalizeAudio()
	c.normalizeMatching()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiarization() {
	if c.Diarization.BaseURL == "" {
		if value, ok := os.LookupEnv("DATABRICKS_HOST"); ok {
			c.Diarization.BaseURL = value
		}
	}
	if c.Diarization.Token == "" {
		if value, ok := os.LookupEnv("DATABRICKS_TOKEN"); ok {
			c.Diarization.Token = value
		}
	}
	c.Diarization.BaseURL = strings.TrimRight(strings.TrimSpace(c.Diarization.BaseURL), "/")
	if c.Diarization.BaseURL != "" && !strings.Contains(c.Diarization.BaseURL, "://") {
		c.Diarization.BaseURL = "https://" + c.Diarization.BaseURL
	}
	c.Diarization.Endpoint = strings.TrimSpace(c.Diarization.Endpoint)
	c.Diarization.Token = strings.TrimSpace(c.Diarization.Token)
}

func (c *Config) normalizeAudio() {
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Labeling = strings.ToLower(strings.TrimSpace(c.Matching.Labeling))
	if c.Matching.Labeling == "" {
		c.Matching.Labeling = defaultLabeling
	}
	c.Matching.MissingEmbedding = strings.ToLower(strings.TrimSpace(c.Matching.MissingEmbedding))
	if c.Matching.MissingEmbedding == "" {
		c.Matching.MissingEmbedding = defaultMissingEmbedding
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	path := strings.TrimSpace(c.Metrics.TextfilePath)
	if path == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	c.Metrics.TextfilePath = expanded
	return nil
}
