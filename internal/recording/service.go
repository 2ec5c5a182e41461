package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"parley/internal/audio"
	"parley/internal/config"
	"parley/internal/logging"
	"parley/internal/metrics"
	"parley/internal/pipeline"
	"parley/internal/preflight"
	"parley/internal/services"
	"parley/internal/speakers"
	"parley/internal/store"
)

const stageName = "recording"

// ErrBusy reports that another process holds the recording's lock.
var ErrBusy = errors.New("recording is already being processed")

// Service manages the recording lifecycle.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	diarizer pipeline.Diarizer
	audio    *audio.Service
	metrics  *metrics.Recorder
	logger   *slog.Logger

	labels  speakers.LabelPolicy
	missing speakers.MissingPolicy
}

// Option customizes a Service.
type Option func(*Service)

// WithAudioService overrides the ffmpeg wrapper.
func WithAudioService(svc *audio.Service) Option {
	return func(s *Service) {
		if svc != nil {
			s.audio = svc
		}
	}
}

// WithMetrics records chunk and recording outcomes.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service. The config's label and missing-embedding
// policies are resolved up front so a bad config fails before any work.
func NewService(cfg *config.Config, st *store.Store, diarizer pipeline.Diarizer, opts ...Option) (*Service, error) {
	if cfg == nil || st == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new service", "config and store are required", nil)
	}
	labels, err := speakers.PolicyByName(cfg.Matching.Labeling)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new service", "", err)
	}
	missing, err := speakers.ParseMissingPolicy(cfg.Matching.MissingEmbedding)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new service", "", err)
	}

	s := &Service{
		cfg:      cfg,
		store:    st,
		diarizer: diarizer,
		audio:    audio.NewService(cfg.Audio.FFmpegBinary),
		labels:   labels,
		missing:  missing,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, stageName)
	return s, nil
}

// Add validates a source file and registers it as a pending recording.
func (s *Service) Add(ctx context.Context, path, title string) (*store.Recording, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "add", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "add", abs, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, stageName, "add", abs+" is a directory", nil)
	}
	if err := audio.ValidateUpload(abs, info.Size(), s.cfg.Audio.MaxUploadBytes); err != nil {
		return nil, err
	}
	rec, err := s.store.NewRecording(ctx, title, abs)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithRecordingID(ctx, rec.ID), s.logger).Info("recording added",
		logging.String("title", rec.Title),
		logging.String("source", abs),
		logging.Int("size_bytes", int(info.Size())),
	)
	return rec, nil
}

// Process runs a recording end to end and returns its final state. On
// failure the recording is marked failed, with the failing chunk when one is
// known, and the error is returned.
func (s *Service) Process(ctx context.Context, id string) (*store.Recording, error) {
	return s.locked(ctx, id, false)
}

// Reprocess discards a recording's stored output and processes it again
// from scratch.
func (s *Service) Reprocess(ctx context.Context, id string) (*store.Recording, error) {
	return s.locked(ctx, id, true)
}

func (s *Service) locked(ctx context.Context, id string, reset bool) (*store.Recording, error) {
	if s.diarizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "process", "no diarization endpoint configured", nil)
	}
	if err := os.MkdirAll(s.cfg.LockDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "lock", "create lock dir", err)
	}
	lock := flock.New(filepath.Join(s.cfg.LockDir(), id+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "lock", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, id)
	}
	defer func() { _ = lock.Unlock() }()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "process", "recording "+id, nil)
	}
	switch {
	case reset:
		if err := s.store.ResetForReprocess(ctx, id); err != nil {
			return nil, err
		}
	case rec.Status == store.StatusCompleted:
		return nil, services.Wrap(services.ErrValidation, stageName, "process",
			fmt.Sprintf("recording %s is already completed; reprocess it to start over", id), nil)
	}

	ctx = services.WithRequestID(services.WithRecordingID(ctx, id), uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	runErr := s.run(ctx, logger, rec)
	// Status writes must land even when the caller has given up.
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		chunk := -1
		var chunkErr *pipeline.ChunkError
		if errors.As(runErr, &chunkErr) {
			chunk = chunkErr.Index
		}
		if err := s.store.MarkFailed(persistCtx, id, chunk, runErr.Error()); err != nil {
			logger.Error("failed to record failure", logging.Error(err))
		}
		logger.Error("recording failed",
			logging.Error(runErr),
			logging.String("error_kind", services.Classify(runErr)),
			logging.Duration("elapsed", time.Since(started)),
		)
		s.finish(logger, store.StatusFailed)
		return nil, runErr
	}

	logger.Info("recording completed", logging.Duration("elapsed", time.Since(started)))
	s.finish(logger, store.StatusCompleted)
	return s.store.Get(persistCtx, id)
}

func (s *Service) finish(logger *slog.Logger, status store.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordingFinished(string(status))
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("metrics export failed", logging.Error(err))
	}
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, rec *store.Recording) error {
	if failed := preflight.Failed(preflight.RunAll(ctx, s.cfg, nil)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return services.Wrap(services.ErrConfiguration, stageName, "preflight", strings.Join(details, "; "), nil)
	}

	if err := s.store.UpdateStatus(ctx, rec.ID, store.StatusConverting); err != nil {
		return err
	}
	info, err := os.Stat(rec.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "convert", rec.SourcePath, err)
	}
	if err := audio.ValidateUpload(rec.SourcePath, info.Size(), s.cfg.Audio.MaxUploadBytes); err != nil {
		return err
	}

	workDir := filepath.Join(s.cfg.Paths.WorkDir, rec.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "convert", "create work dir", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work dir cleanup failed", logging.String("path", workDir), logging.Error(err))
		}
	}()

	wav := filepath.Join(workDir, "source.wav")
	if err := s.audio.ConvertToWAV(ctx, rec.SourcePath, wav); err != nil {
		return err
	}
	wavInfo, err := audio.ReadWAVInfo(wav)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "inspect", "", err)
	}
	chunkSeconds := audio.PlanChunkSeconds(wavInfo, audio.Limits{
		MaxRequestBytes:   s.cfg.Audio.MaxRequestBytes,
		MinChunkSeconds:   s.cfg.Audio.MinChunkSeconds,
		FixedChunking:     s.cfg.Audio.FixedChunking,
		FixedChunkSeconds: s.cfg.Audio.FixedChunkSeconds,
	})
	paths, err := s.audio.Split(ctx, wav, filepath.Join(workDir, "chunks"), chunkSeconds)
	if err != nil {
		return err
	}
	if err := s.store.SetChunkPlan(ctx, rec.ID, store.ChunkPlan{
		Count:           len(paths),
		Seconds:         chunkSeconds,
		DurationSeconds: wavInfo.Duration().Seconds(),
	}); err != nil {
		return err
	}
	logger.Info("audio prepared",
		logging.Int("chunks", len(paths)),
		logging.Int("chunk_seconds", chunkSeconds),
		logging.Duration("duration", wavInfo.Duration()),
	)

	if err := s.store.UpdateStatus(ctx, rec.ID, store.StatusDiarizing); err != nil {
		return err
	}
	result, err := s.orchestrator(ctx, logger, rec.ID).Run(ctx, pipeline.FileChunks(paths))
	if err != nil {
		return err
	}

	if err := s.store.UpdateStatus(ctx, rec.ID, store.StatusSaving); err != nil {
		return err
	}
	return s.store.SaveResult(context.WithoutCancel(ctx), rec.ID, toStoreResult(result))
}

func (s *Service) orchestrator(ctx context.Context, logger *slog.Logger, id string) *pipeline.Orchestrator {
	progressCtx := context.WithoutCancel(ctx)
	progress := newChunkProgress(time.Now)
	opts := []pipeline.Option{
		pipeline.WithThreshold(s.cfg.Matching.SimilarityThreshold),
		pipeline.WithLabelPolicy(s.labels),
		pipeline.WithMissingPolicy(s.missing),
		pipeline.WithEmbeddingDim(s.cfg.Matching.EmbeddingDim),
		pipeline.WithChunkTimeout(s.cfg.DiarizationTimeout()),
		pipeline.WithLogger(s.logger),
		pipeline.WithTransitionHook(func(tr pipeline.Transition) {
			if tr.State != pipeline.StateProcessingChunk || tr.Total == 0 {
				return
			}
			message, percent := progress.update(tr.Chunk, tr.Total)
			if err := s.store.UpdateProgress(progressCtx, id, message, percent); err != nil {
				logger.Warn("progress update failed", logging.Error(err))
			}
		}),
	}
	if s.metrics != nil {
		opts = append(opts, pipeline.WithObserver(s.metrics))
	}
	return pipeline.New(s.diarizer, opts...)
}

func toStoreResult(result *pipeline.Result) store.Result {
	out := store.Result{
		Dialog:        result.Dialog,
		Transcription: result.Transcription,
		Turns:         result.Turns,
		Speakers:      make([]store.Speaker, 0, len(result.Speakers)),
	}
	for i, ref := range result.Speakers {
		out.Speakers = append(out.Speakers, store.Speaker{
			Label:      ref.Label,
			Position:   i,
			FirstChunk: ref.Chunk,
			Embedding:  ref.Embedding,
		})
	}
	return out
}
