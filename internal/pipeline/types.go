package pipeline

import (
	"context"
	"fmt"
	"time"

	"parley/internal/dialog"
	"parley/internal/diarization"
	"parley/internal/speakers"
)

// State is the orchestrator's position in a run.
type State string

const (
	StateNotStarted      State = "not_started"
	StateProcessingChunk State = "processing_chunk"
	StateReconciling     State = "reconciling"
	StateMerged          State = "merged"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Diarizer is the remote diarization boundary.
type Diarizer interface {
	Diarize(ctx context.Context, req diarization.Request) (diarization.Response, error)
}

// Transition is reported each time the orchestrator changes state. Chunk is
// -1 for states that are not tied to a chunk.
type Transition struct {
	State State
	Chunk int
	Total int
}

// Observer receives per-chunk outcomes, typically for metrics.
type Observer interface {
	ChunkCompleted(summary ChunkSummary)
	ChunkFailed(index int, err error)
}

// ChunkSummary describes how one chunk's speakers were labeled.
type ChunkSummary struct {
	Index int
	// Seeded is true for the chunk that initialized the reference set.
	Seeded bool
	// Silent is true when the chunk had neither speaker turns nor embeddings.
	Silent bool
	// Mapping is local label to canonical label for speakers with embeddings.
	Mapping     map[string]string
	Assignments []speakers.Assignment
	Minted      []string
	// Unresolved maps dialog speakers without a usable embedding to the label
	// the missing-embedding policy chose.
	Unresolved map[string]string
	Duration   time.Duration
}

// Result is the merged output of a successful run.
type Result struct {
	Dialog        string
	Transcription string
	Turns         []dialog.Turn
	// Speakers is the final reference set in label order.
	Speakers []speakers.Reference
	Chunks   []ChunkSummary
}

// ChunkError reports the chunk that failed a run.
type ChunkError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d failed: %v", e.Index+1, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
