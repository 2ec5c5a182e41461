package config

const (
	defaultConfigPath            = "~/.config/parley/config.toml"
	defaultDataDir               = "~/.local/share/parley"
	defaultLogDir                = "~/.local/share/parley/logs"
	defaultWorkDir               = "~/.cache/parley/work"
	defaultDiarizationTimeout    = 600
	defaultFFmpegBinary          = "ffmpeg"
	defaultMaxRequestBytes       = 16_777_216
	defaultMinChunkSeconds       = 60
	defaultFixedChunkSeconds     = 60
	defaultMaxUploadBytes        = 500 * 1024 * 1024
	defaultSimilarityThreshold   = 0.75
	defaultLabeling              = "interview"
	defaultMissingEmbedding      = "passthrough"
	defaultMaxParallelRecordings = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 50
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			WorkDir: defaultWorkDir,
		},
		Diarization: Diarization{
			TimeoutSeconds: defaultDiarizationTimeout,
		},
		Audio: Audio{
			FFmpegBinary:      defaultFFmpegBinary,
			MaxRequestBytes:   defaultMaxRequestBytes,
			MinChunkSeconds:   defaultMinChunkSeconds,
			FixedChunkSeconds: defaultFixedChunkSeconds,
			MaxUploadBytes:    defaultMaxUploadBytes,
		},
		Matching: Matching{
			SimilarityThreshold: defaultSimilarityThreshold,
			Labeling:            defaultLabeling,
			MissingEmbedding:    defaultMissingEmbedding,
		},
		Workers: Workers{
			MaxParallelRecordings: defaultMaxParallelRecordings,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
