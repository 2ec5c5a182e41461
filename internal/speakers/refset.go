package speakers

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySeeded is returned when Seed is called twice.
	ErrAlreadySeeded = errors.New("reference set already seeded")
	// ErrEmptyReferenceSet is returned when matching against an unseeded set.
	ErrEmptyReferenceSet = errors.New("reference set is empty")
	// ErrNoSpeakers is returned when Seed receives no speakers.
	ErrNoSpeakers = errors.New("no speakers to seed")
)

// Reference is one canonical speaker and the embedding that identifies it.
type Reference struct {
	Label     string
	Embedding Embedding
	// Chunk is the zero-based chunk index that introduced the speaker.
	Chunk int
}

// ReferenceSet is the recording-wide map of canonical labels to voice
// embeddings. Labels are unique, never removed, and never reassigned.
// Insertion order defines numbering and tie-breaks.
type ReferenceSet struct {
	policy     LabelPolicy
	dim        int
	entries    []Reference
	index      map[string]int
	maxOrdinal int
	seeded     bool
}

// NewReferenceSet returns an empty set. dim pins the expected embedding
// length; zero adopts the length of the first seeded speaker.
func NewReferenceSet(policy LabelPolicy, dim int) *ReferenceSet {
	if policy == nil {
		policy = InterviewLabels
	}
	if dim < 0 {
		dim = 0
	}
	return &ReferenceSet{
		policy:     policy,
		dim:        dim,
		index:      make(map[string]int),
		maxOrdinal: -1,
	}
}

// Seed initializes the set from the first chunk that produced embeddings.
// Speakers receive canonical labels in the order given, which callers
// establish with SortLocal. The returned map is local label to canonical
// label. Nothing is inserted when any speaker is invalid.
func (r *ReferenceSet) Seed(local []LocalSpeaker, chunk int) (map[string]string, error) {
	if r.seeded {
		return nil, ErrAlreadySeeded
	}
	if len(local) == 0 {
		return nil, ErrNoSpeakers
	}

	dim := r.dim
	if dim == 0 {
		dim = len(local[0].Embedding)
	}
	seen := make(map[string]struct{}, len(local))
	for _, sp := range local {
		if _, dup := seen[sp.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, sp.Label)
		}
		seen[sp.Label] = struct{}{}
		if err := sp.Embedding.Validate(dim); err != nil {
			return nil, fmt.Errorf("seed speaker %q: %w", sp.Label, err)
		}
	}

	r.dim = dim
	mapping := make(map[string]string, len(local))
	for _, sp := range local {
		mapping[sp.Label] = r.insert(sp.Embedding, chunk)
	}
	r.seeded = true
	return mapping, nil
}

// AddNew mints the next unused canonical label for e and stores it.
func (r *ReferenceSet) AddNew(e Embedding, chunk int) (string, error) {
	if !r.seeded {
		return "", ErrEmptyReferenceSet
	}
	if err := e.Validate(r.dim); err != nil {
		return "", err
	}
	return r.insert(e, chunk), nil
}

func (r *ReferenceSet) insert(e Embedding, chunk int) string {
	ordinal := r.maxOrdinal + 1
	label := r.policy.Label(ordinal)
	for {
		if _, taken := r.index[label]; !taken {
			break
		}
		ordinal++
		label = r.policy.Label(ordinal)
	}
	r.maxOrdinal = ordinal
	r.index[label] = len(r.entries)
	r.entries = append(r.entries, Reference{Label: label, Embedding: e.Clone(), Chunk: chunk})
	return label
}

// Seeded reports whether Seed has succeeded.
func (r *ReferenceSet) Seeded() bool { return r.seeded }

// Len returns the number of canonical speakers.
func (r *ReferenceSet) Len() int { return len(r.entries) }

// Dim returns the embedding length shared by every entry, or the pinned
// length before seeding.
func (r *ReferenceSet) Dim() int { return r.dim }

// Policy returns the labeling policy in use.
func (r *ReferenceSet) Policy() LabelPolicy { return r.policy }

// Has reports whether label is a canonical label in the set.
func (r *ReferenceSet) Has(label string) bool {
	_, ok := r.index[label]
	return ok
}

// IndexOf returns the insertion index of label.
func (r *ReferenceSet) IndexOf(label string) (int, bool) {
	i, ok := r.index[label]
	return i, ok
}

// Labels returns canonical labels in insertion order.
func (r *ReferenceSet) Labels() []string {
	out := make([]string, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.Label
	}
	return out
}

// Entries returns a deep copy of the set in insertion order.
func (r *ReferenceSet) Entries() []Reference {
	out := make([]Reference, len(r.entries))
	for i, entry := range r.entries {
		out[i] = Reference{Label: entry.Label, Embedding: entry.Embedding.Clone(), Chunk: entry.Chunk}
	}
	return out
}

// Snapshot returns a deep copy keyed by canonical label, suitable for
// sending to the diarization endpoint as reference hints.
func (r *ReferenceSet) Snapshot() map[string]Embedding {
	out := make(map[string]Embedding, len(r.entries))
	for _, entry := range r.entries {
		out[entry.Label] = entry.Embedding.Clone()
	}
	return out
}
