package pipeline_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"parley/internal/pipeline"
	"parley/internal/services"
	"parley/internal/speakers"
	"parley/internal/testsupport"
)

var (
	v1 = speakers.Embedding{1, 0, 0}
	v2 = speakers.Embedding{0, 1, 0}
	v3 = speakers.Embedding{0, 0, 1}
	// nearV2 scores 0.95 against v2.
	nearV2 = speakers.Embedding{math.Sqrt(1 - 0.95*0.95), 0.95, 0}
)

type recordingObserver struct {
	mu        sync.Mutex
	completed []pipeline.ChunkSummary
	failed    []int
}

func (r *recordingObserver) ChunkCompleted(summary pipeline.ChunkSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, summary)
}

func (r *recordingObserver) ChunkFailed(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, index)
}

func chunks(n int) pipeline.MemoryChunks {
	out := make(pipeline.MemoryChunks, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func TestRunReconcilesThreeChunks(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: Hello there\nRespondent: Hi", map[string]speakers.Embedding{
			"Interviewer": v1,
			"Respondent":  v2,
		}),
		testsupport.Reply("Respondent: yes I agree", map[string]speakers.Embedding{
			"Respondent": nearV2,
		}),
		testsupport.Reply("Interviewer: who are you\nRespondent: I'm new here", map[string]speakers.Embedding{
			"Interviewer": v1,
			"Respondent":  v3,
		}),
	)
	observer := &recordingObserver{}
	orch := pipeline.New(diarizer, pipeline.WithObserver(observer))

	result, err := orch.Run(context.Background(), chunks(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDialog := "Interviewer: Hello there\nRespondent: Hi\nRespondent: yes I agree\nInterviewer: who are you\nRespondent1: I'm new here"
	if result.Dialog != wantDialog {
		t.Fatalf("dialog mismatch:\n got %q\nwant %q", result.Dialog, wantDialog)
	}

	if len(result.Speakers) != 3 {
		t.Fatalf("expected 3 canonical speakers, got %d", len(result.Speakers))
	}
	wantLabels := []string{"Interviewer", "Respondent", "Respondent1"}
	wantChunks := []int{0, 0, 2}
	for i, ref := range result.Speakers {
		if ref.Label != wantLabels[i] || ref.Chunk != wantChunks[i] {
			t.Fatalf("speaker %d = %s@%d, want %s@%d", i, ref.Label, ref.Chunk, wantLabels[i], wantChunks[i])
		}
	}

	chunk1 := result.Chunks[1]
	if chunk1.Mapping["Respondent"] != "Respondent" || len(chunk1.Minted) != 0 {
		t.Fatalf("chunk 1 should keep Respondent without minting: %+v", chunk1)
	}
	if got := chunk1.Assignments[0].Similarity; math.Abs(got-0.95) > 1e-9 {
		t.Fatalf("chunk 1 similarity = %v, want 0.95", got)
	}
	chunk2 := result.Chunks[2]
	if chunk2.Mapping["Respondent"] != "Respondent1" || len(chunk2.Minted) != 1 {
		t.Fatalf("chunk 2 should mint Respondent1: %+v", chunk2)
	}

	wantTurns := []string{"Interviewer", "Respondent", "Interviewer", "Respondent1"}
	if len(result.Turns) != len(wantTurns) {
		t.Fatalf("expected %d turns, got %+v", len(wantTurns), result.Turns)
	}
	for i, turn := range result.Turns {
		if turn.Speaker != wantTurns[i] {
			t.Fatalf("turn %d speaker = %q, want %q", i, turn.Speaker, wantTurns[i])
		}
	}
	if result.Turns[1].Text != "Hi yes I agree" {
		t.Fatalf("cross-chunk turns should consolidate, got %q", result.Turns[1].Text)
	}

	if len(observer.completed) != 3 || len(observer.failed) != 0 {
		t.Fatalf("observer saw %d completed, %d failed", len(observer.completed), len(observer.failed))
	}
	if orch.State() != pipeline.StateDone {
		t.Fatalf("final state = %s", orch.State())
	}
}

func TestRunSendsReferencesAfterFirstChunk(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("Respondent: c\nInterviewer: d", map[string]speakers.Embedding{"Interviewer": v3, "Respondent": v2}),
		testsupport.Reply("Interviewer: e", map[string]speakers.Embedding{"Interviewer": v1}),
	)
	if _, err := pipeline.New(diarizer).Run(context.Background(), chunks(3)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reqs := diarizer.Requests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	if reqs[0].References != nil {
		t.Fatalf("first chunk must not carry references: %v", reqs[0].References)
	}
	if len(reqs[1].References) != 2 {
		t.Fatalf("second chunk references = %v", reqs[1].References)
	}
	if len(reqs[2].References) != 3 {
		t.Fatalf("third chunk should see the minted speaker, got %v", reqs[2].References)
	}
	for i, req := range reqs {
		if req.ChunkIndex != i {
			t.Fatalf("request %d chunk index = %d", i, req.ChunkIndex)
		}
	}
}

func TestRunSwapsLocalLabels(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("Interviewer: c\nRespondent: d", map[string]speakers.Embedding{"Interviewer": v2, "Respondent": v1}),
	)
	result, err := pipeline.New(diarizer).Run(context.Background(), chunks(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Interviewer: a\nRespondent: b\nRespondent: c\nInterviewer: d"
	if result.Dialog != want {
		t.Fatalf("swap not applied:\n got %q\nwant %q", result.Dialog, want)
	}
	if len(result.Speakers) != 2 {
		t.Fatalf("swap must not mint labels, got %d speakers", len(result.Speakers))
	}
}

func TestRunMatchesDialogLabelsCaseInsensitively(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("INTERVIEWER: hi\nrespondent: hello", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("respondent: again\nInterviewer: ok", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
	)
	result, err := pipeline.New(diarizer).Run(context.Background(), chunks(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Interviewer: hi\nRespondent: hello\nRespondent: again\nInterviewer: ok"
	if result.Dialog != want {
		t.Fatalf("labels not aligned:\n got %q\nwant %q", result.Dialog, want)
	}
	if len(result.Turns) != 3 || result.Turns[0].Speaker != "Interviewer" || result.Turns[1].Speaker != "Respondent" {
		t.Fatalf("voices must stay distinct, got %+v", result.Turns)
	}
}

func TestRunNumberedLabels(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("SPEAKER_00: a\nSPEAKER_01: b", map[string]speakers.Embedding{"SPEAKER_00": v1, "SPEAKER_01": v2}),
		testsupport.Reply("SPEAKER_00: c", map[string]speakers.Embedding{"SPEAKER_00": v3}),
	)
	result, err := pipeline.New(diarizer, pipeline.WithLabelPolicy(speakers.NumberedLabels)).
		Run(context.Background(), chunks(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Speaker1: a\nSpeaker2: b\nSpeaker3: c"
	if result.Dialog != want {
		t.Fatalf("dialog = %q, want %q", result.Dialog, want)
	}
}

func TestRunThresholdOption(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("Respondent: c", map[string]speakers.Embedding{"Respondent": nearV2}),
	)
	result, err := pipeline.New(diarizer, pipeline.WithThreshold(0.99)).Run(context.Background(), chunks(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Chunks[1].Mapping["Respondent"]; got != "Respondent1" {
		t.Fatalf("strict threshold should mint, got %q", got)
	}
}

func TestRunMissingEmbeddingPolicies(t *testing.T) {
	script := func() *testsupport.ScriptedDiarizer {
		return testsupport.NewScriptedDiarizer(
			testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
			testsupport.Reply("Interviewer: c\nRespondent: d\nSPEAKER_05: e", map[string]speakers.Embedding{"Respondent": nearV2}),
		)
	}

	tests := []struct {
		name   string
		policy speakers.MissingPolicy
		want   string
	}{
		{"passthrough", speakers.MissingPassthrough, "Interviewer: a\nRespondent: b\nInterviewer: c\nRespondent: d\nUnknown: e"},
		{"unknown", speakers.MissingUnknown, "Interviewer: a\nRespondent: b\nUnknown: c\nRespondent: d\nUnknown: e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := pipeline.New(script(), pipeline.WithMissingPolicy(tt.policy)).Run(context.Background(), chunks(2))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if result.Dialog != tt.want {
				t.Fatalf("dialog:\n got %q\nwant %q", result.Dialog, tt.want)
			}
			for _, ref := range result.Speakers {
				if ref.Label == speakers.UnknownLabel {
					t.Fatal("Unknown must never enter the reference set")
				}
			}
			if len(result.Chunks[1].Unresolved) != 2 {
				t.Fatalf("unresolved = %v", result.Chunks[1].Unresolved)
			}
		})
	}
}

func TestRunTreatsDegenerateEmbeddingAsMissing(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("Interviewer: c\nRespondent: d", map[string]speakers.Embedding{
			"Interviewer": {0, 0, 0},
			"Respondent":  {0, math.NaN(), 0},
		}),
	)
	result, err := pipeline.New(diarizer).Run(context.Background(), chunks(2))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation failure when no embedding is usable, got %v", err)
	}
	if result != nil {
		t.Fatal("failed run must not return a partial result")
	}

	diarizer = testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", map[string]speakers.Embedding{"Interviewer": v1, "Respondent": v2}),
		testsupport.Reply("Interviewer: c\nRespondent: d", map[string]speakers.Embedding{
			"Interviewer": {0, 0, 0},
			"Respondent":  nearV2,
		}),
	)
	result, err = pipeline.New(diarizer).Run(context.Background(), chunks(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Chunks[1].Unresolved["Interviewer"]; got != "Interviewer" {
		t.Fatalf("zero vector should fall back to passthrough, got %q", got)
	}
}

func TestRunFailsOnDimensionMismatch(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}),
		testsupport.Reply("Interviewer: b", map[string]speakers.Embedding{"Interviewer": {1, 0, 0, 0}}),
		testsupport.Reply("Interviewer: c", map[string]speakers.Embedding{"Interviewer": v1}),
	)
	observer := &recordingObserver{}
	orch := pipeline.New(diarizer, pipeline.WithObserver(observer))
	result, err := orch.Run(context.Background(), chunks(3))
	if result != nil {
		t.Fatal("expected no result")
	}
	var chunkErr *pipeline.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.Index != 1 || chunkErr.Total != 3 {
		t.Fatalf("expected chunk 1 error, got %v", err)
	}
	if !errors.Is(err, speakers.ErrDimensionMismatch) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation dimension mismatch, got %v", err)
	}
	if diarizer.Calls() != 2 {
		t.Fatalf("processing must stop at the failing chunk, got %d calls", diarizer.Calls())
	}
	if len(observer.failed) != 1 || observer.failed[0] != 1 {
		t.Fatalf("observer failures = %v", observer.failed)
	}
	if orch.State() != pipeline.StateFailed {
		t.Fatalf("state = %s", orch.State())
	}
}

func TestRunPinnedDimension(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}),
	)
	_, err := pipeline.New(diarizer, pipeline.WithEmbeddingDim(4)).Run(context.Background(), chunks(1))
	if !errors.Is(err, speakers.ErrDimensionMismatch) {
		t.Fatalf("expected mismatch against pinned dimension, got %v", err)
	}
}

func TestRunFailsWhenTurnsHaveNoEmbeddings(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a\nRespondent: b", nil),
	)
	_, err := pipeline.New(diarizer).Run(context.Background(), chunks(1))
	var chunkErr *pipeline.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.Index != 0 {
		t.Fatalf("expected chunk 0 failure, got %v", err)
	}
	if services.Classify(err) != "validation" {
		t.Fatalf("classify = %s", services.Classify(err))
	}
}

func TestRunSilentChunkDefersSeeding(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("", nil),
		testsupport.Reply("SPEAKER_01: hi\nSPEAKER_00: hello", map[string]speakers.Embedding{"SPEAKER_00": v1, "SPEAKER_01": v2}),
		testsupport.Reply("", nil),
	)
	result, err := pipeline.New(diarizer).Run(context.Background(), chunks(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Chunks[0].Silent || !result.Chunks[2].Silent {
		t.Fatalf("expected silent chunks 0 and 2: %+v", result.Chunks)
	}
	if !result.Chunks[1].Seeded {
		t.Fatal("chunk 1 should seed the reference set")
	}
	if diarizer.Requests()[1].References != nil {
		t.Fatal("no references exist before seeding")
	}
	if want := "Respondent: hi\nInterviewer: hello"; result.Dialog != want {
		t.Fatalf("dialog = %q, want %q", result.Dialog, want)
	}
	if result.Speakers[0].Chunk != 1 {
		t.Fatalf("seed chunk = %d", result.Speakers[0].Chunk)
	}
}

func TestRunEndpointErrorFailsRecording(t *testing.T) {
	endpointErr := services.Wrap(services.ErrTransient, "diarization", "invoke", "http 503", nil)
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}),
		testsupport.ChunkReply{Err: endpointErr},
	)
	_, err := pipeline.New(diarizer).Run(context.Background(), chunks(2))
	var chunkErr *pipeline.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.Index != 1 {
		t.Fatalf("expected chunk 1 error, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRunChunkTimeout(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.ChunkReply{Delay: time.Second},
	)
	start := time.Now()
	_, err := pipeline.New(diarizer, pipeline.WithChunkTimeout(20*time.Millisecond)).Run(context.Background(), chunks(2))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
	if diarizer.Calls() != 1 {
		t.Fatalf("no further chunks after a timeout, got %d calls", diarizer.Calls())
	}
}

func TestRunCancellationWaitsForChunkBoundary(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.ChunkReply{
			Response: testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}).Response,
			Delay:    30 * time.Millisecond,
		},
		testsupport.Reply("Interviewer: b", map[string]speakers.Embedding{"Interviewer": v1}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var states []pipeline.State
	hook := func(tr pipeline.Transition) {
		states = append(states, tr.State)
		if tr.State == pipeline.StateProcessingChunk && tr.Chunk == 0 {
			cancel()
		}
	}
	obs := &recordingObserver{}
	_, err := pipeline.New(diarizer, pipeline.WithTransitionHook(hook), pipeline.WithObserver(obs)).Run(ctx, chunks(2))
	var chunkErr *pipeline.ChunkError
	if errors.As(err, &chunkErr) {
		t.Fatalf("cancellation before a chunk starts must not blame a chunk, got %v", err)
	}
	if len(obs.failed) != 0 {
		t.Fatalf("no chunk failed, observer saw %v", obs.failed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if diarizer.Calls() != 1 {
		t.Fatalf("in-flight chunk should finish and the next should not start, got %d calls", diarizer.Calls())
	}
	want := []pipeline.State{
		pipeline.StateNotStarted,
		pipeline.StateProcessingChunk,
		pipeline.StateReconciling,
		pipeline.StateMerged,
		pipeline.StateFailed,
	}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestRunTransitions(t *testing.T) {
	diarizer := testsupport.NewScriptedDiarizer(
		testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}),
		testsupport.Reply("Interviewer: b", map[string]speakers.Embedding{"Interviewer": v1}),
	)
	var got []pipeline.Transition
	orch := pipeline.New(diarizer, pipeline.WithTransitionHook(func(tr pipeline.Transition) { got = append(got, tr) }))
	if _, err := orch.Run(context.Background(), chunks(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []pipeline.Transition{
		{State: pipeline.StateNotStarted, Chunk: -1, Total: 2},
		{State: pipeline.StateProcessingChunk, Chunk: 0, Total: 2},
		{State: pipeline.StateReconciling, Chunk: 0, Total: 2},
		{State: pipeline.StateMerged, Chunk: 0, Total: 2},
		{State: pipeline.StateProcessingChunk, Chunk: 1, Total: 2},
		{State: pipeline.StateReconciling, Chunk: 1, Total: 2},
		{State: pipeline.StateMerged, Chunk: 1, Total: 2},
		{State: pipeline.StateDone, Chunk: -1, Total: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("transitions = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	_, err := pipeline.New(testsupport.NewScriptedDiarizer()).Run(context.Background(), pipeline.MemoryChunks{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunIsolatesRecordings(t *testing.T) {
	script := func() *testsupport.ScriptedDiarizer {
		return testsupport.NewScriptedDiarizer(
			testsupport.Reply("Interviewer: a", map[string]speakers.Embedding{"Interviewer": v1}),
		)
	}
	orch := pipeline.New(script())
	first, err := orch.Run(context.Background(), chunks(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := pipeline.New(script()).Run(context.Background(), chunks(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first.Speakers[0].Embedding[0] = 42
	if second.Speakers[0].Embedding[0] != 1 {
		t.Fatal("recordings must not share reference state")
	}
}

func TestFileChunks(t *testing.T) {
	dir := t.TempDir()
	paths := make(pipeline.FileChunks, 2)
	for i := range paths {
		paths[i] = filepath.Join(dir, "chunk-"+string(rune('a'+i))+".wav")
		if err := os.WriteFile(paths[i], []byte{byte(i)}, 0o644); err != nil {
			t.Fatalf("write chunk: %v", err)
		}
	}
	data, err := paths.Load(context.Background(), 1)
	if err != nil || len(data) != 1 || data[0] != 1 {
		t.Fatalf("Load = %v, %v", data, err)
	}
	if _, err := paths.Load(context.Background(), 2); err == nil {
		t.Fatal("expected out of range error")
	}
}
