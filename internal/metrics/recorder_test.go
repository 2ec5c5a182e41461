package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parley/internal/metrics"
	"parley/internal/pipeline"
	"parley/internal/services"
	"parley/internal/speakers"
)

func TestRecorderTextfile(t *testing.T) {
	rec := metrics.New()
	rec.ChunkCompleted(pipeline.ChunkSummary{
		Index:    0,
		Seeded:   true,
		Minted:   []string{"Interviewer", "Respondent"},
		Duration: 2 * time.Second,
	})
	rec.ChunkCompleted(pipeline.ChunkSummary{
		Index: 1,
		Assignments: []speakers.Assignment{
			{Local: "Respondent", Canonical: "Respondent", Similarity: 0.95, Matched: true},
			{Local: "SPEAKER_02", Canonical: "Respondent1", Similarity: 0.1},
		},
		Minted:     []string{"Respondent1"},
		Unresolved: map[string]string{"SPEAKER_03": speakers.UnknownLabel},
		Duration:   3 * time.Second,
	})
	rec.ChunkCompleted(pipeline.ChunkSummary{Index: 2, Silent: true})
	rec.ChunkFailed(3, services.Wrap(services.ErrTimeout, "pipeline", "diarize", "", nil))
	rec.ChunkFailed(3, errors.New("boom"))
	rec.RecordingFinished("failed")

	path := filepath.Join(t.TempDir(), "textfile", "parley.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`parley_chunks_total{outcome="ok"} 2`,
		`parley_chunks_total{outcome="silent"} 1`,
		`parley_chunks_total{outcome="timeout"} 1`,
		`parley_chunks_total{outcome="transient"} 1`,
		`parley_speakers_matched_total 1`,
		`parley_speakers_minted_total 3`,
		`parley_speakers_unresolved_total 1`,
		`parley_match_similarity_count 1`,
		`parley_chunk_duration_seconds_count 3`,
		`parley_recordings_total{status="failed"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	if err := metrics.New().WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
