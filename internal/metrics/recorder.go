// Package metrics counts reconciliation outcomes on a private prometheus
// registry and exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"parley/internal/pipeline"
	"parley/internal/services"
)

// Recorder implements pipeline.Observer. It is safe for concurrent use by
// several orchestrators.
type Recorder struct {
	registry *prometheus.Registry

	chunks          *prometheus.CounterVec
	matched         prometheus.Counter
	minted          prometheus.Counter
	unresolved      prometheus.Counter
	similarity      prometheus.Histogram
	chunkDuration   prometheus.Histogram
	recordingResult *prometheus.CounterVec
}

var _ pipeline.Observer = (*Recorder)(nil)

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_chunks_total",
			Help: "Chunks processed, by outcome.",
		}, []string{"outcome"}),
		matched: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_speakers_matched_total",
			Help: "Chunk speakers that adopted an existing canonical label.",
		}),
		minted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_speakers_minted_total",
			Help: "Canonical labels created, including seeded speakers.",
		}),
		unresolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_speakers_unresolved_total",
			Help: "Dialog speakers labeled by the missing-embedding policy.",
		}),
		similarity: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_match_similarity",
			Help:    "Cosine similarity of accepted speaker matches.",
			Buckets: []float64{0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 0.98, 1},
		}),
		chunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_chunk_duration_seconds",
			Help:    "Wall time per chunk including the endpoint call.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		recordingResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_recordings_total",
			Help: "Recordings finished, by final status.",
		}, []string{"status"}),
	}
}

// ChunkCompleted records a successfully reconciled chunk.
func (r *Recorder) ChunkCompleted(summary pipeline.ChunkSummary) {
	outcome := "ok"
	if summary.Silent {
		outcome = "silent"
	}
	r.chunks.WithLabelValues(outcome).Inc()
	r.chunkDuration.Observe(summary.Duration.Seconds())
	r.minted.Add(float64(len(summary.Minted)))
	r.unresolved.Add(float64(len(summary.Unresolved)))
	for _, a := range summary.Assignments {
		if a.Matched {
			r.matched.Inc()
			r.similarity.Observe(a.Similarity)
		}
	}
}

// ChunkFailed records a chunk that failed its recording.
func (r *Recorder) ChunkFailed(_ int, err error) {
	r.chunks.WithLabelValues(services.Classify(err)).Inc()
}

// RecordingFinished counts a recording reaching a terminal status.
func (r *Recorder) RecordingFinished(status string) {
	r.recordingResult.WithLabelValues(status).Inc()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile atomically writes all metrics to path. An empty path is a
// no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
