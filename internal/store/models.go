package store

import (
	"time"

	"parley/internal/dialog"
	"parley/internal/speakers"
)

// Status represents the lifecycle of a recording.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusDiarizing  Status = "diarizing"
	StatusSaving     Status = "saving"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusConverting,
	StatusDiarizing,
	StatusSaving,
	StatusCompleted,
	StatusFailed,
}

var processingStatuses = map[Status]struct{}{
	StatusConverting: {},
	StatusDiarizing:  {},
	StatusSaving:     {},
}

// IsProcessing reports whether the status denotes in-flight work.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Recording is one uploaded audio file and its processing state.
type Recording struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	SourcePath      string     `json:"source_path"`
	Status          Status     `json:"status"`
	ChunkCount      int        `json:"chunk_count"`
	ChunkSeconds    int        `json:"chunk_seconds"`
	DurationSeconds float64    `json:"duration_seconds"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	FailedChunk     *int       `json:"failed_chunk,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Speaker is one stored canonical speaker.
type Speaker struct {
	Label string `json:"label"`
	// Position is the insertion order within the recording's reference set.
	Position   int                `json:"position"`
	FirstChunk int                `json:"first_chunk"`
	Embedding  speakers.Embedding `json:"embedding"`
}

// Transcript is a recording's reconciled output.
type Transcript struct {
	RecordingID   string        `json:"recording_id"`
	Dialog        string        `json:"dialog"`
	Transcription string        `json:"transcription"`
	Turns         []dialog.Turn `json:"turns"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Result is everything SaveResult persists for a completed recording.
type Result struct {
	Dialog        string
	Transcription string
	Turns         []dialog.Turn
	Speakers      []Speaker
}

// ChunkPlan records how a recording was split for diarization.
type ChunkPlan struct {
	Count           int
	Seconds         int
	DurationSeconds float64
}
