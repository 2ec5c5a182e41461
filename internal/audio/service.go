package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"parley/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service wraps the ffmpeg invocations used to prepare audio.
type Service struct {
	ffmpegBinary  string
	commandRunner CommandRunner
}

// NewService creates an audio service using the given ffmpeg binary.
func NewService(ffmpegBinary string) *Service {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Service{ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	s.commandRunner = runner
	return s
}

// ConvertToWAV transcodes src into 16 kHz mono signed 16-bit WAV at dest.
func (s *Service) ConvertToWAV(ctx context.Context, src, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := s.run(ctx, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "convert", filepath.Base(src), err)
	}
	return nil
}

// Split cuts wav into consecutive chunkSeconds-long WAV files under dir and
// returns their paths in playback order. chunkSeconds <= 0 returns wav
// itself as the only chunk.
func (s *Service) Split(ctx context.Context, wav, dir string, chunkSeconds int) ([]string, error) {
	if chunkSeconds <= 0 {
		return []string{wav}, nil
	}
	info, err := ReadWAVInfo(wav)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "split", "", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "audio", "split", "create chunk dir", err)
	}

	count := ChunkCount(info, chunkSeconds)
	paths := make([]string, 0, count)
	for i := range count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest := filepath.Join(dir, fmt.Sprintf("chunk-%04d.wav", i))
		args := []string{
			"-y",
			"-hide_banner",
			"-loglevel", "error",
			"-ss", strconv.Itoa(i * chunkSeconds),
			"-t", strconv.Itoa(chunkSeconds),
			"-i", wav,
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			dest,
		}
		if err := s.run(ctx, args...); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "audio", "split", fmt.Sprintf("chunk %d", i), err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

func (s *Service) run(ctx context.Context, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpegBinary, args...)
	}
	cmd := exec.CommandContext(ctx, s.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.ffmpegBinary, err, strings.TrimSpace(string(output)))
	}
	return nil
}
