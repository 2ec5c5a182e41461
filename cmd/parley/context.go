package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"parley/internal/audio"
	"parley/internal/config"
	"parley/internal/diarization"
	"parley/internal/logging"
	"parley/internal/metrics"
	"parley/internal/pipeline"
	"parley/internal/recording"
	"parley/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// Overrides used by tests. Nil means build from config.
	logger          *slog.Logger
	audioService    *audio.Service
	diarizerFactory func(*config.Config) (pipeline.Diarizer, error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the recording database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

func (c *commandContext) baseLogger(cfg *config.Config) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) endpointClient(cfg *config.Config) (*diarization.Client, error) {
	if err := cfg.ValidateDiarization(); err != nil {
		return nil, err
	}
	return diarization.NewClient(diarization.Config{
		BaseURL:  cfg.Diarization.BaseURL,
		Endpoint: cfg.Diarization.Endpoint,
		Token:    cfg.Diarization.Token,
		Timeout:  cfg.DiarizationTimeout(),
	})
}

func (c *commandContext) diarizer(cfg *config.Config) (pipeline.Diarizer, error) {
	if c.diarizerFactory != nil {
		return c.diarizerFactory(cfg)
	}
	client, err := c.endpointClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// recordingService wires the lifecycle service for one command invocation.
func (c *commandContext) recordingService(cfg *config.Config, st *store.Store, needDiarizer bool) (*recording.Service, error) {
	logger, err := c.baseLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	var diarizer pipeline.Diarizer
	if needDiarizer {
		diarizer, err = c.diarizer(cfg)
		if err != nil {
			return nil, err
		}
	}
	opts := []recording.Option{
		recording.WithLogger(logger),
		recording.WithMetrics(metrics.New()),
	}
	if c.audioService != nil {
		opts = append(opts, recording.WithAudioService(c.audioService))
	}
	return recording.NewService(cfg, st, diarizer, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
