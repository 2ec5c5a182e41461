package speakers

import (
	"fmt"
	"sort"
)

// DefaultThreshold is the minimum cosine similarity at which a chunk speaker
// adopts an existing canonical label.
const DefaultThreshold = 0.75

// Reconciler matches one chunk's speakers against a ReferenceSet.
type Reconciler struct {
	// Threshold is inclusive: a pair scoring exactly Threshold matches.
	Threshold float64
}

// NewReconciler returns a Reconciler with the given threshold.
func NewReconciler(threshold float64) Reconciler {
	return Reconciler{Threshold: threshold}
}

// Assignment records the decision for one local speaker.
type Assignment struct {
	Local     string
	Canonical string
	// Similarity is the score against Canonical for matches. For minted
	// labels it is the best score the speaker reached against the references
	// that existed before this chunk.
	Similarity float64
	Matched    bool
}

// Reconciliation is the outcome of reconciling one chunk.
type Reconciliation struct {
	// Mapping is local label to canonical label for every local speaker.
	Mapping map[string]string
	// Assignments follow the local speaker order.
	Assignments []Assignment
	// Minted lists canonical labels created for this chunk, in creation order.
	Minted []string
}

// Matched returns the number of local speakers that adopted an existing label.
func (r Reconciliation) Matched() int {
	n := 0
	for _, a := range r.Assignments {
		if a.Matched {
			n++
		}
	}
	return n
}

type candidate struct {
	local, ref int
	sim        float64
}

// Reconcile assigns each local speaker a canonical label. Pairs are taken
// greedily from highest similarity down; a pair is skipped when either side
// is already taken, and the walk stops at the first pair under the
// threshold. Ties prefer the earlier canonical label, then the earlier local
// speaker. Unmatched speakers are added to refs as new labels, in local
// order.
func (rc Reconciler) Reconcile(local []LocalSpeaker, refs *ReferenceSet, chunk int) (Reconciliation, error) {
	result := Reconciliation{Mapping: make(map[string]string, len(local))}
	if refs == nil || refs.Len() == 0 {
		return result, ErrEmptyReferenceSet
	}
	if len(local) == 0 {
		return result, nil
	}

	seen := make(map[string]struct{}, len(local))
	for _, sp := range local {
		if _, dup := seen[sp.Label]; dup {
			return result, fmt.Errorf("%w: %q", ErrDuplicateLabel, sp.Label)
		}
		seen[sp.Label] = struct{}{}
		if err := sp.Embedding.Validate(refs.Dim()); err != nil {
			return result, fmt.Errorf("speaker %q: %w", sp.Label, err)
		}
	}

	entries := refs.entries
	pairs := make([]candidate, 0, len(local)*len(entries))
	best := make([]float64, len(local))
	for li, sp := range local {
		best[li] = -1
		for ri, ref := range entries {
			sim, err := CosineSimilarity(sp.Embedding, ref.Embedding)
			if err != nil {
				return result, fmt.Errorf("score %q against %q: %w", sp.Label, ref.Label, err)
			}
			if sim > best[li] {
				best[li] = sim
			}
			pairs = append(pairs, candidate{local: li, ref: ri, sim: sim})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].sim != pairs[j].sim {
			return pairs[i].sim > pairs[j].sim
		}
		if pairs[i].ref != pairs[j].ref {
			return pairs[i].ref < pairs[j].ref
		}
		return pairs[i].local < pairs[j].local
	})

	assigned := make([]int, len(local))
	for i := range assigned {
		assigned[i] = -1
	}
	sims := make([]float64, len(local))
	usedRef := make([]bool, len(entries))
	for _, p := range pairs {
		if p.sim < rc.Threshold {
			break
		}
		if assigned[p.local] >= 0 || usedRef[p.ref] {
			continue
		}
		assigned[p.local] = p.ref
		sims[p.local] = p.sim
		usedRef[p.ref] = true
	}

	labels := make([]string, len(entries))
	for i, entry := range entries {
		labels[i] = entry.Label
	}

	result.Assignments = make([]Assignment, 0, len(local))
	for li, sp := range local {
		if ri := assigned[li]; ri >= 0 {
			result.Mapping[sp.Label] = labels[ri]
			result.Assignments = append(result.Assignments, Assignment{
				Local: sp.Label, Canonical: labels[ri], Similarity: sims[li], Matched: true,
			})
			continue
		}
		label, err := refs.AddNew(sp.Embedding, chunk)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("mint label for %q: %w", sp.Label, err)
		}
		result.Mapping[sp.Label] = label
		result.Minted = append(result.Minted, label)
		result.Assignments = append(result.Assignments, Assignment{
			Local: sp.Label, Canonical: label, Similarity: best[li],
		})
	}
	return result, nil
}
