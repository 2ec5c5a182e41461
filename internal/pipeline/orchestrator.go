package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"parley/internal/dialog"
	"parley/internal/diarization"
	"parley/internal/logging"
	"parley/internal/services"
	"parley/internal/speakers"
)

const stageName = "pipeline"

// Orchestrator runs chunks sequentially for one recording at a time. Run may
// be called repeatedly; each call builds a fresh reference set.
type Orchestrator struct {
	diarizer     Diarizer
	reconciler   speakers.Reconciler
	labels       speakers.LabelPolicy
	missing      speakers.MissingPolicy
	embeddingDim int
	chunkTimeout time.Duration
	observer     Observer
	onTransition func(Transition)
	logger       *slog.Logger

	mu    sync.Mutex
	state State
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithThreshold sets the similarity threshold for reusing a label.
func WithThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.reconciler = speakers.NewReconciler(threshold) }
}

// WithLabelPolicy sets the canonical labeling scheme.
func WithLabelPolicy(policy speakers.LabelPolicy) Option {
	return func(o *Orchestrator) {
		if policy != nil {
			o.labels = policy
		}
	}
}

// WithMissingPolicy sets how speakers without embeddings are labeled.
func WithMissingPolicy(policy speakers.MissingPolicy) Option {
	return func(o *Orchestrator) {
		if policy != "" {
			o.missing = policy
		}
	}
}

// WithEmbeddingDim pins the expected embedding length. Zero accepts the
// length of the first seeded speaker.
func WithEmbeddingDim(dim int) Option {
	return func(o *Orchestrator) { o.embeddingDim = dim }
}

// WithChunkTimeout bounds each diarization call. Zero disables the bound.
func WithChunkTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) { o.chunkTimeout = timeout }
}

// WithObserver registers a per-chunk outcome observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

// WithTransitionHook registers a callback invoked on every state change.
func WithTransitionHook(hook func(Transition)) Option {
	return func(o *Orchestrator) { o.onTransition = hook }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New constructs an Orchestrator around diarizer.
func New(diarizer Diarizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		diarizer:   diarizer,
		reconciler: speakers.NewReconciler(speakers.DefaultThreshold),
		labels:     speakers.InterviewLabels,
		missing:    speakers.MissingPassthrough,
		state:      StateNotStarted,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, stageName)
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(state State, chunk, total int) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
	if o.onTransition != nil {
		o.onTransition(Transition{State: state, Chunk: chunk, Total: total})
	}
}

// Run processes every chunk of src in order and returns the merged result.
// On failure the error is a *ChunkError whenever a specific chunk is to
// blame, and no partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, src ChunkSource) (*Result, error) {
	if o.diarizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "run", "no diarizer configured", nil)
	}
	total := 0
	if src != nil {
		total = src.Len()
	}
	o.transition(StateNotStarted, -1, total)
	if total == 0 {
		o.transition(StateFailed, -1, total)
		return nil, services.Wrap(services.ErrValidation, stageName, "run", "recording has no audio chunks", nil)
	}

	logger := logging.WithContext(ctx, o.logger)
	refs := speakers.NewReferenceSet(o.labels, o.embeddingDim)
	dialogs := make([]string, 0, total)
	transcripts := make([]string, 0, total)
	summaries := make([]ChunkSummary, 0, total)
	started := time.Now()

	for i := range total {
		// Chunk i never started, so no chunk is to blame.
		if err := ctx.Err(); err != nil {
			o.transition(StateFailed, -1, total)
			return nil, fmt.Errorf("run canceled after %d of %d chunks: %w", i, total, err)
		}

		summary, rewritten, transcript, err := o.processChunk(ctx, src, refs, i, total)
		if err != nil {
			return nil, o.fail(i, total, err)
		}
		dialogs = append(dialogs, rewritten)
		transcripts = append(transcripts, transcript)
		summaries = append(summaries, summary)
		if o.observer != nil {
			o.observer.ChunkCompleted(summary)
		}
		o.transition(StateMerged, i, total)
	}

	merged := dialog.Merge(dialogs...)
	result := &Result{
		Dialog:        merged,
		Transcription: dialog.MergeTranscripts(transcripts...),
		Turns:         dialog.Parse(merged),
		Speakers:      refs.Entries(),
		Chunks:        summaries,
	}
	o.transition(StateDone, -1, total)
	logger.Info("recording diarized",
		logging.Int("chunks", total),
		logging.Int("speakers", refs.Len()),
		logging.Int("turns", len(result.Turns)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (o *Orchestrator) fail(index, total int, err error) error {
	o.transition(StateFailed, index, total)
	if o.observer != nil {
		o.observer.ChunkFailed(index, err)
	}
	return &ChunkError{Index: index, Total: total, Err: err}
}

func (o *Orchestrator) processChunk(ctx context.Context, src ChunkSource, refs *speakers.ReferenceSet, index, total int) (ChunkSummary, string, string, error) {
	o.transition(StateProcessingChunk, index, total)
	chunkCtx := services.WithChunkIndex(ctx, index)
	logger := logging.WithContext(chunkCtx, o.logger)
	started := time.Now()

	audio, err := src.Load(chunkCtx, index)
	if err != nil {
		return ChunkSummary{}, "", "", services.Wrap(services.ErrValidation, stageName, "load chunk", "", err)
	}

	req := diarization.Request{Audio: audio, ChunkIndex: index}
	if index > 0 && refs.Seeded() {
		req.References = refs.Snapshot()
	}

	resp, err := o.diarize(chunkCtx, req)
	if err != nil {
		return ChunkSummary{}, "", "", err
	}

	o.transition(StateReconciling, index, total)
	summary, rewritten, err := o.reconcile(logger, refs, index, resp)
	if err != nil {
		return ChunkSummary{}, "", "", err
	}
	summary.Duration = time.Since(started)

	logger.Info("chunk reconciled",
		logging.Int("matched", countMatched(summary.Assignments)),
		logging.Int("minted", len(summary.Minted)),
		logging.Int("unresolved", len(summary.Unresolved)),
		logging.Int("references", refs.Len()),
		logging.Duration("duration", summary.Duration),
	)
	return summary, rewritten, resp.Transcription, nil
}

// diarize shields the in-flight call from caller cancellation; only the
// per-chunk timeout can interrupt it.
func (o *Orchestrator) diarize(ctx context.Context, req diarization.Request) (diarization.Response, error) {
	callCtx := context.WithoutCancel(ctx)
	if o.chunkTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.chunkTimeout)
		defer cancel()
	}
	resp, err := o.diarizer.Diarize(callCtx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		return diarization.Response{}, services.Wrap(services.ErrTimeout, stageName, "diarize", fmt.Sprintf("exceeded %s", o.chunkTimeout), err)
	}
	return diarization.Response{}, err
}

func (o *Orchestrator) reconcile(logger *slog.Logger, refs *speakers.ReferenceSet, index int, resp diarization.Response) (ChunkSummary, string, error) {
	summary := ChunkSummary{Index: index, Mapping: map[string]string{}, Unresolved: map[string]string{}}
	keys := make([]string, 0, len(resp.Embeddings))
	for label := range resp.Embeddings {
		keys = append(keys, label)
	}
	text := dialog.AlignLabels(resp.Dialog, keys)
	dialogSpeakers := dialog.Speakers(text)

	usable := make([]speakers.LocalSpeaker, 0, len(resp.Embeddings))
	for label, emb := range resp.Embeddings {
		err := emb.Validate(refs.Dim())
		switch {
		case err == nil:
			usable = append(usable, speakers.LocalSpeaker{Label: label, Embedding: emb})
		case errors.Is(err, speakers.ErrDimensionMismatch):
			return summary, "", services.Wrap(services.ErrValidation, stageName, "reconcile",
				fmt.Sprintf("speaker %q", label), err)
		default:
			logger.Warn("discarding unusable speaker embedding",
				logging.String("speaker", label),
				logging.Error(err),
				logging.Event("embedding_discarded"),
			)
		}
	}
	speakers.SortLocal(usable, o.labels)

	if len(usable) == 0 {
		if len(dialogSpeakers) == 0 {
			summary.Silent = true
			logger.Info("chunk has no speech")
			return summary, text, nil
		}
		return summary, "", services.Wrap(services.ErrValidation, stageName, "reconcile",
			fmt.Sprintf("no usable speaker embeddings for %d speakers", len(dialogSpeakers)), nil)
	}

	if !refs.Seeded() {
		mapping, err := refs.Seed(usable, index)
		if err != nil {
			return summary, "", services.Wrap(services.ErrValidation, stageName, "seed", "", err)
		}
		summary.Seeded = true
		summary.Mapping = mapping
		for _, sp := range usable {
			label := mapping[sp.Label]
			summary.Minted = append(summary.Minted, label)
			summary.Assignments = append(summary.Assignments, speakers.Assignment{Local: sp.Label, Canonical: label})
		}
		logger.Info("reference set seeded", logging.Int("speakers", len(mapping)), logging.Int("dim", refs.Dim()))
	} else {
		rec, err := o.reconciler.Reconcile(usable, refs, index)
		if err != nil {
			return summary, "", services.Wrap(services.ErrValidation, stageName, "reconcile", "", err)
		}
		summary.Mapping = rec.Mapping
		summary.Assignments = rec.Assignments
		summary.Minted = rec.Minted
		for _, a := range rec.Assignments {
			if a.Matched {
				continue
			}
			logger.Info("new speaker",
				logging.Speakers(a.Local, a.Canonical),
				logging.Similarity(a.Similarity),
				logging.Event("speaker_minted"),
			)
		}
	}

	var missing []string
	for _, label := range dialogSpeakers {
		if _, ok := summary.Mapping[label]; !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		summary.Unresolved = o.missing.Resolve(missing, refs, summary.Mapping)
		for local, label := range summary.Unresolved {
			logger.Warn("speaker without embedding",
				logging.Speakers(local, label),
				logging.String("policy", string(o.missing)),
				logging.Event("embedding_missing"),
			)
		}
	}

	relabel := make(map[string]string, len(summary.Mapping)+len(summary.Unresolved))
	for local, canonical := range summary.Mapping {
		relabel[local] = canonical
	}
	for local, canonical := range summary.Unresolved {
		relabel[local] = canonical
	}
	return summary, dialog.Relabel(text, relabel), nil
}

func countMatched(assignments []speakers.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.Matched {
			n++
		}
	}
	return n
}
