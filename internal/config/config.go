package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains storage directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	WorkDir string `toml:"work_dir"`
}

// Diarization contains the remote serving endpoint settings.
type Diarization struct {
	BaseURL        string `toml:"base_url"`
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio contains conversion and chunk sizing settings.
type Audio struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	MaxRequestBytes   int64  `toml:"max_request_bytes"`
	MinChunkSeconds   int    `toml:"min_chunk_seconds"`
	FixedChunking     bool   `toml:"fixed_chunking"`
	FixedChunkSeconds int    `toml:"fixed_chunk_seconds"`
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
}

// Matching contains cross-chunk speaker reconciliation settings.
type Matching struct {
	// SimilarityThreshold is the minimum cosine similarity (inclusive) for a
	// chunk speaker to adopt an existing canonical label.
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	// EmbeddingDim pins the expected embedding length. Zero accepts whatever
	// the first chunk reports.
	EmbeddingDim int `toml:"embedding_dim"`
	// Labeling selects the canonical label scheme: "interview" or "numbered".
	Labeling string `toml:"labeling"`
	// MissingEmbedding selects how dialog speakers without embeddings are
	// labeled: "passthrough" or "unknown".
	MissingEmbedding string `toml:"missing_embedding"`
}

// Workers contains concurrency settings for batch processing.
type Workers struct {
	MaxParallelRecordings int `toml:"max_parallel_recordings"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Metrics contains configuration for the prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for parley.
//
// Configuration sections by subsystem:
//   - Paths: database, log, and scratch directories
//   - Diarization: remote serving endpoint and per-chunk timeout
//   - Audio: ffmpeg binary and chunk sizing
//   - Matching: similarity threshold and label policies
//   - Workers: parallel recording limit
//   - Logging: log format, level, and rotation
//   - Metrics: optional textfile export
type Config struct {
	Paths       Paths       `toml:"paths"`
	Diarization Diarization `toml:"diarization"`
	Audio       Audio       `toml:"audio"`
	Matching    Matching    `toml:"matching"`
	Workers     Workers     `toml:"workers"`
	Logging     Logging     `toml:"logging"`
	Metrics     Metrics     `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parley.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.WorkDir, c.LockDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "parley.db")
}

// LockDir returns the directory holding per-recording processing locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// DiarizationTimeout returns the per-chunk endpoint timeout.
func (c *Config) DiarizationTimeout() time.Duration {
	return time.Duration(c.Diarization.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
