package speakers

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	// ErrDimensionMismatch reports embeddings of different lengths. It is
	// fatal for a recording run.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrZeroVector reports an embedding whose magnitude is zero.
	ErrZeroVector = errors.New("zero-magnitude embedding")
	// ErrEmptyEmbedding reports an embedding with no components.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrNonFinite reports NaN or infinite components.
	ErrNonFinite = errors.New("non-finite embedding component")
	// ErrDuplicateLabel reports a local label supplied twice for one chunk.
	ErrDuplicateLabel = errors.New("duplicate speaker label")
)

// Embedding is a fixed-length voice vector. Values are treated as immutable
// once handed to a ReferenceSet.
type Embedding []float64

// Dim returns the vector length.
func (e Embedding) Dim() int { return len(e) }

// Norm returns the L2 magnitude.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Clone returns a copy that shares no memory with e.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// Validate checks that e is usable for similarity scoring. dim <= 0 skips
// the length check.
func (e Embedding) Validate(dim int) error {
	if len(e) == 0 {
		return ErrEmptyEmbedding
	}
	if dim > 0 && len(e) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e), dim)
	}
	var sum float64
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
		sum += v * v
	}
	if sum == 0 {
		return ErrZeroVector
	}
	return nil
}

// LocalSpeaker is one speaker as reported by a single chunk's diarization.
type LocalSpeaker struct {
	Label     string
	Embedding Embedding
}

// LocalSpeakers converts a label-to-embedding map into a slice in stable
// local order (see SortLocal).
func LocalSpeakers(embeddings map[string]Embedding, policy LabelPolicy) []LocalSpeaker {
	out := make([]LocalSpeaker, 0, len(embeddings))
	for label, emb := range embeddings {
		out = append(out, LocalSpeaker{Label: label, Embedding: emb})
	}
	SortLocal(out, policy)
	return out
}

// SortLocal orders speakers deterministically: labels the policy recognises
// come first by ordinal, the rest follow in natural order (SPEAKER_2 before
// SPEAKER_10).
func SortLocal(speakers []LocalSpeaker, policy LabelPolicy) {
	sort.SliceStable(speakers, func(i, j int) bool {
		return localLess(speakers[i].Label, speakers[j].Label, policy)
	})
}

// SortLabels applies the SortLocal ordering to bare labels.
func SortLabels(labels []string, policy LabelPolicy) {
	sort.SliceStable(labels, func(i, j int) bool {
		return localLess(labels[i], labels[j], policy)
	})
}

func localLess(a, b string, policy LabelPolicy) bool {
	var oa, ob int
	var okA, okB bool
	if policy != nil {
		oa, okA = policy.Ordinal(a)
		ob, okB = policy.Ordinal(b)
	}
	switch {
	case okA && okB:
		return oa < ob
	case okA != okB:
		return okA
	}
	return naturalLess(a, b)
}

func naturalLess(a, b string) bool {
	pa, na, hasA := splitNumericSuffix(a)
	pb, nb, hasB := splitNumericSuffix(b)
	if pa != pb || hasA != hasB {
		return a < b
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

func splitNumericSuffix(s string) (string, int, bool) {
	start := len(s)
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[start:])
	if err != nil {
		return s, 0, false
	}
	return s[:start], n, true
}
