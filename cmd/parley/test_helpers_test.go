package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"parley/internal/audio"
	"parley/internal/config"
	"parley/internal/logging"
	"parley/internal/pipeline"
	"parley/internal/speakers"
	"parley/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	diarizer   *testsupport.ScriptedDiarizer
	ffmpeg     string
}

func setupCLITestEnv(t *testing.T, replies ...testsupport.ChunkReply) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithFixedChunks(60))
	base := testsupport.BaseDir(cfg)

	ffmpeg := filepath.Join(base, "bin", "ffmpeg")
	if err := os.MkdirAll(filepath.Dir(ffmpeg), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	cfg.Audio.FFmpegBinary = ffmpeg

	configPath := filepath.Join(base, "config", "parley.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		diarizer:   testsupport.NewScriptedDiarizer(replies...),
		ffmpeg:     ffmpeg,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
work_dir = %q

[diarization]
base_url = %q
endpoint = %q
token = %q

[audio]
ffmpeg_binary = %q
fixed_chunking = true
fixed_chunk_seconds = %d
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.WorkDir,
		cfg.Diarization.BaseURL,
		cfg.Diarization.Endpoint,
		cfg.Diarization.Token,
		cfg.Audio.FFmpegBinary,
		cfg.Audio.FixedChunkSeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeSource creates a placeholder upload under the env's base dir.
func (e *cliTestEnv) writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "uploads", name)
	testsupport.WriteFile(t, path, 2048)
	return path
}

// fakeFFmpeg writes a 150 second WAV for conversions and one second WAVs for
// chunk extraction.
func fakeFFmpeg(t *testing.T) audio.CommandRunner {
	return func(_ context.Context, _ string, args ...string) error {
		seconds := 1
		if !slices.Contains(args, "-ss") {
			seconds = 150
		}
		testsupport.WriteWAV(t, args[len(args)-1], seconds)
		return nil
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	var configFlag string
	cctx := newCommandContext(&configFlag)
	cctx.logger = logging.NewNop()
	cctx.audioService = audio.NewService(env.ffmpeg).WithCommandRunner(fakeFFmpeg(t))
	cctx.diarizerFactory = func(*config.Config) (pipeline.Diarizer, error) {
		return env.diarizer, nil
	}

	cmd := newRootCommandWithContext(cctx, &configFlag)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func threeChunkReplies() []testsupport.ChunkReply {
	return []testsupport.ChunkReply{
		testsupport.Reply("Interviewer: Hello there\nRespondent: Hi", map[string]speakers.Embedding{
			"Interviewer": {1, 0, 0},
			"Respondent":  {0, 1, 0},
		}),
		testsupport.Reply("Respondent: yes I agree", map[string]speakers.Embedding{
			"Respondent": {math.Sqrt(1 - 0.95*0.95), 0.95, 0},
		}),
		testsupport.Reply("Interviewer: who are you\nRespondent: I'm new here", map[string]speakers.Embedding{
			"Interviewer": {1, 0, 0},
			"Respondent":  {0, 0, 1},
		}),
	}
}
